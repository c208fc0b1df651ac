package units

import (
	"encoding/json"
	"fmt"
)

// Unit identifies what a Measure counts.
type Unit int

const (
	Celsius Unit = iota
	RPM
)

func (u Unit) String() string {
	switch u {
	case Celsius:
		return "°C"
	case RPM:
		return "RPM"
	default:
		return "unknown"
	}
}

// Measure is a fixed-point reading stored in thousandths of its unit.
type Measure struct {
	milli int64
	unit  Unit
}

func MilliCelsius(value int64) Measure {
	return Measure{milli: value, unit: Celsius}
}

func FromCelsius(value int64) Measure {
	return Measure{milli: value * 1000, unit: Celsius}
}

func FromRPM(value int64) Measure {
	return Measure{milli: value * 1000, unit: RPM}
}

// Whole builds a measure from an integer amount of unit, as written in rule files.
func Whole(value int, unit Unit) Measure {
	return Measure{milli: int64(value) * 1000, unit: unit}
}

func (m Measure) Milli() int64 {
	return m.milli
}

func (m Measure) Unit() Unit {
	return m.unit
}

// Int truncates towards zero.
func (m Measure) Int() int64 {
	return m.milli / 1000
}

func (m Measure) Float() float64 {
	return float64(m.milli) / 1000
}

func (m Measure) Less(other Measure) bool {
	return m.milli < other.milli
}

func (m Measure) Greater(other Measure) bool {
	return m.milli > other.milli
}

// Within reports whether lo <= m <= hi.
func (m Measure) Within(lo, hi Measure) bool {
	return m.milli >= lo.milli && m.milli <= hi.milli
}

func (m Measure) String() string {
	whole := m.milli / 1000
	frac := m.milli % 1000
	if frac < 0 {
		frac = -frac
	}
	if frac == 0 {
		return fmt.Sprintf("%d %s", whole, m.unit)
	}
	sign := ""
	if m.milli < 0 && whole == 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%03d %s", sign, whole, frac, m.unit)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	}{m.Float(), m.unit.String()})
}
