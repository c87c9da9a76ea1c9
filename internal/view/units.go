package view

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the temperature unit preferred by the user.
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// ErrUnknownUnit is returned by ParseUnit for anything but celsius or fahrenheit.
var ErrUnknownUnit = fmt.Errorf("unknown temperature unit, expected %q or %q", Celsius, Fahrenheit)

// ParseUnit accepts "celsius", "fahrenheit", "c" and "f" in any case.
func ParseUnit(raw string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "celsius", "c":
		return Celsius, nil
	case "fahrenheit", "f":
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
	}
}

// Symbol is "°C" or "°F".
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Label is the name shown in the profile, e.g. "Celsius (°C)".
func (u Unit) Label() string {
	if u == Fahrenheit {
		return "Fahrenheit (°F)"
	}
	return "Celsius (°C)"
}

// Convert turns a Celsius reading into this unit.
func (u Unit) Convert(celsius float64) float64 {
	if u == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// Temperature formats a Celsius reading as a rounded value with its unit, e.g. "18°C".
func Temperature(celsius float64, unit Unit) string {
	return fmt.Sprintf("%d%s", round(unit.Convert(celsius)), unit.Symbol())
}

// Degrees formats a Celsius reading as a rounded value without the unit letter, e.g. "20°".
func Degrees(celsius float64, unit Unit) string {
	return fmt.Sprintf("%d°", round(unit.Convert(celsius)))
}

// round rounds half up, so 17.5 is 18 and -2.5 is -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
