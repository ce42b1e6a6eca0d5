package order

import "strings"

// Outcome is one of exactly two user-facing results of order validation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// confirmedStatuses is the fixed allow-list of remote order statuses that
// count as a successful outcome. Anything else, including garbage or an
// empty string, is a failure; classification is total and deterministic.
var confirmedStatuses = map[string]struct{}{
	"CONFIRMED":  {},
	"PROCESSING": {},
	"PENDING":    {},
	"SHIPPED":    {},
	"DELIVERED":  {},
}

// Classify maps a remote order status string to a user-facing outcome.
// Matching is case-insensitive.
func Classify(status string) Outcome {
	if _, ok := confirmedStatuses[strings.ToUpper(strings.TrimSpace(status))]; ok {
		return OutcomeSuccess
	}
	return OutcomeFailed
}
