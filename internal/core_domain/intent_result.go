package core_domain

import "fmt"

// IntentResult is the outcome of handing a target to an external app or dialer.
// It is one of IntentSuccess, IntentUnavailable or IntentFailure.
type IntentResult interface {
	isIntentResult()
	// Status is a stable label for logs, metrics and API responses.
	Status() string
}

// IntentSuccess means the launch was handed off.
type IntentSuccess struct{}

// IntentUnavailable means nothing capable could take the launch.
type IntentUnavailable struct {
	Reason string
}

// IntentFailure means a capable adapter tried and failed.
type IntentFailure struct {
	Message string
	Cause   error
}

func (IntentSuccess) isIntentResult()     {}
func (IntentUnavailable) isIntentResult() {}
func (IntentFailure) isIntentResult()     {}

func (IntentSuccess) Status() string     { return "success" }
func (IntentUnavailable) Status() string { return "unavailable" }
func (IntentFailure) Status() string     { return "failure" }

func (f IntentFailure) Error() string {
	if f.Cause == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Cause)
}

func (f IntentFailure) Unwrap() error { return f.Cause }

// IsSuccess reports whether r is an IntentSuccess.
func IsSuccess(r IntentResult) bool {
	_, ok := r.(IntentSuccess)
	return ok
}
