package units

import (
	"errors"
	"fmt"
)

var ErrPercentOutOfRange = errors.New("percent out of range")

// Percent is a whole percentage, always within 0..100.
type Percent uint8

const (
	MinPercent Percent = 0
	MaxPercent Percent = 100
)

func NewPercent(value int) (Percent, error) {
	if value < int(MinPercent) || value > int(MaxPercent) {
		return 0, fmt.Errorf("%w: %d", ErrPercentOutOfRange, value)
	}
	return Percent(value), nil
}

// PercentOf returns where point sits inside [start, stop] as a percentage.
func PercentOf(start, stop, point int64) (Percent, error) {
	if start >= stop || point < start || point > stop {
		return 0, fmt.Errorf("%w: %d not within [%d, %d]", ErrPercentOutOfRange, point, start, stop)
	}
	return Percent(100 * (point - start) / (stop - start)), nil
}

func (p Percent) Int() int {
	return int(p)
}

// PointAt maps the percentage linearly onto [start, stop].
func (p Percent) PointAt(start, stop int64) int64 {
	return int64(p)*(stop-start)/100 + start
}

func (p Percent) String() string {
	return fmt.Sprintf("%d%%", uint8(p))
}
