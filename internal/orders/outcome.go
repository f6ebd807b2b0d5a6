package orders

type Outcome string

const (
	OutcomeCreated   Outcome = "CREATED"
	OutcomeDuplicate Outcome = "DUPLICATE"
	OutcomeIgnored   Outcome = "IGNORED"
	OutcomeFailed    Outcome = "FAILED"
)

type Result struct {
	Outcome Outcome
	OrderID string
}
