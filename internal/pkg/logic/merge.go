package logic

import (
	"github.com/anicoll/fancontrol/internal/pkg/ast"
	"github.com/anicoll/fancontrol/internal/pkg/program"
	"github.com/anicoll/fancontrol/internal/pkg/symbols"
	"github.com/anicoll/fancontrol/internal/pkg/units"
)

// request is the winning value for one output after merging every triggered rule.
type request struct {
	output  *symbols.Output
	percent units.Percent
	rule    *program.When
}

// merge folds rules in declaration order. Outputs are keyed by symbol
// identity and conflicts are settled by the output's priorization.
func merge(computed []*computedRule) []*request {
	var order []*request
	byOutput := make(map[*symbols.Output]*request)

	for _, c := range computed {
		for _, out := range c.outputs {
			next := &request{output: out, percent: c.values[out], rule: c.binding.rule}
			prev, ok := byOutput[out]
			if !ok {
				byOutput[out] = next
				order = append(order, next)
				continue
			}
			*prev = *prioritize(out.Priorization, prev, next)
		}
	}
	return order
}

func prioritize(p ast.Priorization, prev, next *request) *request {
	switch p {
	case ast.Min:
		if prev.percent > next.percent {
			return next
		}
		return prev
	case ast.Max:
		if prev.percent > next.percent {
			return prev
		}
		return next
	}
	return next
}
