package runner

import "fmt"

// StartupError records which startup stage failed. The runner keeps serving
// after one; it is surfaced through alerts and Outcome.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func wrapStartup(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StartupError{Stage: stage, Err: err}
}
