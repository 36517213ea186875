package enums

import "fmt"

// OutcomeStatus describes the lifecycle state of an upload's processing.
type OutcomeStatus string

const (
	OutcomeStatusPending OutcomeStatus = "pending"
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusFailed  OutcomeStatus = "failed"
)

var validOutcomeStatuses = []OutcomeStatus{
	OutcomeStatusPending,
	OutcomeStatusSuccess,
	OutcomeStatusFailed,
}

// String returns the literal string for the status.
func (s OutcomeStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s OutcomeStatus) IsValid() bool {
	for _, candidate := range validOutcomeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status may no longer change.
func (s OutcomeStatus) IsTerminal() bool {
	return s == OutcomeStatusSuccess || s == OutcomeStatusFailed
}

// ParseOutcomeStatus converts raw input into an OutcomeStatus.
func ParseOutcomeStatus(value string) (OutcomeStatus, error) {
	for _, candidate := range validOutcomeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outcome status %q", value)
}
