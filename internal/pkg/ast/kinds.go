package ast

import (
	"fmt"
	"strings"
)

type SensorKind int

const (
	Thermistor SensorKind = iota
	Fan
)

func (k SensorKind) String() string {
	switch k {
	case Thermistor:
		return "thermistor"
	case Fan:
		return "fan"
	default:
		return fmt.Sprintf("SensorKind(%d)", int(k))
	}
}

func ParseSensorKind(s string) (SensorKind, error) {
	switch strings.ToLower(s) {
	case "", "thermistor", "temp", "temperature":
		return Thermistor, nil
	case "fan":
		return Fan, nil
	}
	return 0, fmt.Errorf("unknown sensor kind %q", s)
}

type OutputKind int

const (
	PWM OutputKind = iota
)

func (k OutputKind) String() string {
	if k == PWM {
		return "pwm"
	}
	return fmt.Sprintf("OutputKind(%d)", int(k))
}

func ParseOutputKind(s string) (OutputKind, error) {
	switch strings.ToLower(s) {
	case "", "pwm":
		return PWM, nil
	}
	return 0, fmt.Errorf("unknown output kind %q", s)
}

// Priorization picks the winner when several rules set one output in the same tick.
type Priorization int

const (
	Latest Priorization = iota
	Min
	Max
)

func (p Priorization) String() string {
	switch p {
	case Latest:
		return "latest"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Priorization(%d)", int(p))
	}
}

func ParsePriorization(s string) (Priorization, error) {
	switch strings.ToLower(s) {
	case "", "latest":
		return Latest, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return 0, fmt.Errorf("unknown priorization %q", s)
}
