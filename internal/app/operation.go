package app

import "time"

// Operation identifies one CLI or server invocation. Its ID tags every log
// line the invocation writes.
type Operation struct {
	ID      string
	Name    string
	Started time.Time
	Status  string // "success" or "error"
}

// NewOperation creates an operation started at the given time.
func NewOperation(name string, started time.Time) *Operation {
	return &Operation{
		ID:      started.UTC().Format("20060102T150405Z"),
		Name:    name,
		Started: started,
		Status:  "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.Started)
}
