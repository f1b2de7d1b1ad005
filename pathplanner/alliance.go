package pathplanner

import (
	"fmt"
	"strings"
)

// FieldWidthMeters is the width of the 2023 field; red-alliance paths are
// mirrored across its center line.
const FieldWidthMeters = 8.02

type Alliance int

const (
	AllianceInvalid Alliance = iota
	AllianceBlue
	AllianceRed
)

func (a Alliance) String() string {
	switch a {
	case AllianceBlue:
		return "blue"
	case AllianceRed:
		return "red"
	default:
		return "invalid"
	}
}

func ParseAlliance(s string) (Alliance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue":
		return AllianceBlue, nil
	case "red":
		return AllianceRed, nil
	case "", "invalid":
		return AllianceInvalid, nil
	default:
		return AllianceInvalid, fmt.Errorf("unknown alliance %q", s)
	}
}
