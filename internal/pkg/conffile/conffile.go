// Package conffile reads the YAML rule file into an ast.Program.
//
// The file is a single ordered list of statements. Order matters: a device
// must be listed before the sensors and outputs that reference it.
//
//	- device: {name: board, tag: fancontrol_board, driver: nct6775}
//	- sensor: {name: cpu, device: board, kind: thermistor, index: 1}
//	- output: {name: cpu_fan, device: board, index: 2, priorization: max}
//	- when:
//	    sensor: cpu
//	    between: [40, 70]
//	    actions:
//	      - log
//	      - set: {output: cpu_fan, between: [20, 100]}
package conffile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anicoll/fancontrol/internal/pkg/ast"
)

var ErrSyntax = errors.New("syntax error")

type deviceDoc struct {
	Name    string `yaml:"name"`
	Tag     string `yaml:"tag"`
	Driver  string `yaml:"driver"`
	Hotplug bool   `yaml:"hotplug"`
}

type sensorDoc struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
	Kind   string `yaml:"kind"`
	Index  int    `yaml:"index"`
}

type outputDoc struct {
	Name         string `yaml:"name"`
	Device       string `yaml:"device"`
	Kind         string `yaml:"kind"`
	Index        int    `yaml:"index"`
	Priorization string `yaml:"priorization"`
}

type whenDoc struct {
	Sensor  string      `yaml:"sensor"`
	Tag     *string     `yaml:"tag"`
	Between []int       `yaml:"between"`
	Above   *int        `yaml:"above"`
	Below   *int        `yaml:"below"`
	Actions []yaml.Node `yaml:"actions"`
}

type setDoc struct {
	Output  string `yaml:"output"`
	Value   *int   `yaml:"value"`
	Between []int  `yaml:"between"`
}

type statementDoc struct {
	Device *deviceDoc `yaml:"device"`
	Sensor *sensorDoc `yaml:"sensor"`
	Output *outputDoc `yaml:"output"`
	When   *whenDoc   `yaml:"when"`
}

func ParseFile(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*ast.Program, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var nodes []yaml.Node
	if err := dec.Decode(&nodes); err != nil {
		if errors.Is(err, io.EOF) {
			return &ast.Program{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	program := &ast.Program{Statements: make([]ast.Statement, 0, len(nodes))}
	for i := range nodes {
		stmt, err := parseStatement(&nodes[i])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, nodes[i].Line, err)
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

var statementFields = map[string][]string{
	"device": {"name", "tag", "driver", "hotplug"},
	"sensor": {"name", "device", "kind", "index"},
	"output": {"name", "device", "kind", "index", "priorization"},
	"when":   {"sensor", "tag", "between", "above", "below", "actions"},
}

func parseStatement(node *yaml.Node) (ast.Statement, error) {
	if err := checkKeys(node, "device", "sensor", "output", "when"); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := checkKeys(node.Content[i+1], statementFields[node.Content[i].Value]...); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Content[i].Value, err)
		}
	}
	var doc statementDoc
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}

	set := 0
	for _, present := range []bool{doc.Device != nil, doc.Sensor != nil, doc.Output != nil, doc.When != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("statement must define exactly one of device, sensor, output or when")
	}

	switch {
	case doc.Device != nil:
		d := doc.Device
		if d.Name == "" || d.Tag == "" || d.Driver == "" {
			return nil, errors.New("device needs name, tag and driver")
		}
		return ast.DefineDevice{Name: d.Name, Tag: d.Tag, Driver: d.Driver, AllowHotplug: d.Hotplug}, nil

	case doc.Sensor != nil:
		s := doc.Sensor
		if s.Name == "" || s.Device == "" {
			return nil, errors.New("sensor needs name and device")
		}
		kind, err := ast.ParseSensorKind(s.Kind)
		if err != nil {
			return nil, err
		}
		return ast.DefineSensor{Name: s.Name, Device: s.Device, Kind: kind, Index: s.Index}, nil

	case doc.Output != nil:
		o := doc.Output
		if o.Name == "" || o.Device == "" {
			return nil, errors.New("output needs name and device")
		}
		kind, err := ast.ParseOutputKind(o.Kind)
		if err != nil {
			return nil, err
		}
		pri, err := ast.ParsePriorization(o.Priorization)
		if err != nil {
			return nil, err
		}
		return ast.DefineOutput{Name: o.Name, Device: o.Device, Kind: kind, Index: o.Index, Priorization: pri}, nil
	}

	return parseWhen(doc.When)
}

func parseWhen(w *whenDoc) (ast.Statement, error) {
	if w.Sensor == "" {
		return nil, errors.New("when needs a sensor")
	}

	var conditions []ast.Condition
	if w.Between != nil {
		if len(w.Between) != 2 {
			return nil, errors.New("between takes exactly two values")
		}
		conditions = append(conditions, ast.Between{Min: w.Between[0], Max: w.Between[1]})
	}
	if w.Above != nil {
		conditions = append(conditions, ast.GreaterThan{Value: *w.Above})
	}
	if w.Below != nil {
		conditions = append(conditions, ast.LessThan{Value: *w.Below})
	}
	if len(conditions) != 1 {
		return nil, errors.New("when needs exactly one of between, above or below")
	}

	actions := make([]ast.Action, 0, len(w.Actions))
	for i := range w.Actions {
		action, err := parseAction(&w.Actions[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", w.Actions[i].Line, err)
		}
		actions = append(actions, action)
	}

	return ast.When{Sensor: w.Sensor, Tag: w.Tag, Condition: conditions[0], Actions: actions}, nil
}

func parseAction(node *yaml.Node) (ast.Action, error) {
	if node.Kind == yaml.ScalarNode {
		if strings.EqualFold(node.Value, "log") {
			return ast.Log{}, nil
		}
		return nil, fmt.Errorf("unknown action %q", node.Value)
	}
	if err := checkKeys(node, "set"); err != nil {
		return nil, err
	}
	var doc struct {
		Set yaml.Node `yaml:"set"`
	}
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Set.Kind == 0 {
		return nil, errors.New("action must be log or set")
	}
	if err := checkKeys(&doc.Set, "output", "value", "between"); err != nil {
		return nil, err
	}
	var set setDoc
	if err := doc.Set.Decode(&set); err != nil {
		return nil, err
	}
	if set.Output == "" {
		return nil, errors.New("set needs an output")
	}

	switch {
	case set.Value != nil && set.Between == nil:
		return ast.OutputSet{Target: set.Output, Value: ast.Fixed{Value: *set.Value}}, nil
	case set.Value == nil && len(set.Between) == 2:
		return ast.OutputSet{Target: set.Output, Value: ast.Range{Min: set.Between[0], Max: set.Between[1]}}, nil
	}
	return nil, errors.New("set needs either value or a two-element between")
}

// checkKeys rejects unknown mapping keys, which node.Decode does not do on its own.
func checkKeys(node *yaml.Node, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %s", kindName(node.Kind))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown node"
}
