package fetch

import "fmt"

// FailureKind classifies a fetch failure for retry decisions downstream.
type FailureKind string

const (
	// FailureTransient marks failures worth retrying on a later scan
	FailureTransient FailureKind = "transient"
	// FailurePermanent marks failures that will not succeed on retry
	FailurePermanent FailureKind = "permanent"
)

// Failure describes why a fetch gave up.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Detail     string
	Err        error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s fetch failure: %s: %v", f.Kind, f.Detail, f.Err)
	}
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s fetch failure: %s (status %d)", f.Kind, f.Detail, f.StatusCode)
	}
	return fmt.Sprintf("%s fetch failure: %s", f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of fetching one URL. Either Content is populated
// or Failure explains why it is not.
type Result struct {
	Content     string
	ContentType string
	FinalURL    string
	StatusCode  int
	Attempts    int
	Failure     *Failure
}

// OK reports whether content was retrieved.
func (r *Result) OK() bool {
	return r.Failure == nil
}
