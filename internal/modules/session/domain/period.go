package domain

import "fmt"

type PeriodType string

const (
	PeriodFocus PeriodType = "focus"
	PeriodRest  PeriodType = "rest"
)

// Next is the period that follows p. There is no terminal period.
func (p PeriodType) Next() PeriodType {
	if p == PeriodFocus {
		return PeriodRest
	}
	return PeriodFocus
}

func (p PeriodType) Validate() error {
	switch p {
	case PeriodFocus, PeriodRest:
		return nil
	default:
		return fmt.Errorf("unknown period type %q", string(p))
	}
}
