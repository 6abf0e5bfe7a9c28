package logs

import (
	"fmt"

	"github.com/sonnes/cmsync/core"
)

// Outcome is the classified result of an execution. It is implemented only
// by Success and Failure.
type Outcome interface {
	Status() core.LogStatus
	outcome()
}

// Success is a cleanly finished execution.
type Success struct{}

// Failure is an execution that raised. Handled is set when the function
// caught the error itself.
type Failure struct {
	Handled bool
}

func (Success) Status() core.LogStatus { return core.StatusSuccess }

func (f Failure) Status() core.LogStatus {
	if f.Handled {
		return core.StatusHandledError
	}
	return core.StatusUnhandledError
}

func (Success) outcome() {}
func (Failure) outcome() {}

// UnknownStatusError is returned for a status tag that is not recognized.
type UnknownStatusError struct {
	Status core.LogStatus
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown log status %q", string(e.Status))
}

// MalformedRecordError is returned when a record could not be decoded or is
// missing the fields its status requires.
type MalformedRecordError struct {
	Status core.LogStatus
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Status == "" {
		return "malformed log: " + e.Reason
	}
	return fmt.Sprintf("malformed %s log: %s", e.Status, e.Reason)
}

// Classify maps a status tag to its Outcome.
func Classify(status core.LogStatus) (Outcome, error) {
	switch status {
	case core.StatusSuccess:
		return Success{}, nil
	case core.StatusHandledError:
		return Failure{Handled: true}, nil
	case core.StatusUnhandledError:
		return Failure{}, nil
	default:
		return nil, &UnknownStatusError{Status: status}
	}
}
