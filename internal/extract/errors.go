package extract

import "fmt"

// FailureKind classifies extraction failures. Transient is the only
// retryable category; the other kinds are terminal on first occurrence.
type FailureKind string

// Failure kind constants.
const (
	// FailureNoTables means every page was processed and neither
	// strategy found a table. This is a legitimate terminal outcome of a
	// readable document, distinct from a parse error.
	FailureNoTables FailureKind = "NO_TABLES_FOUND"

	// FailureUnparsable means the document could not be read at all:
	// corrupt file, unsupported PDF construction, or password protection.
	FailureUnparsable FailureKind = "UNPARSABLE_DOCUMENT"

	// FailureTransient means the attempt hit a timeout or temporary
	// resource problem and may succeed if retried.
	FailureTransient FailureKind = "TRANSIENT"
)

// Failure is a classified extraction failure.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("extract: %s: %s: %v", f.Kind, f.Detail, f.Err)
	}
	return fmt.Sprintf("extract: %s: %s", f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the failure permits another attempt.
func (f *Failure) Retryable() bool {
	return f.Kind == FailureTransient
}

func noTables() *Failure {
	return &Failure{
		Kind:   FailureNoTables,
		Detail: "no tables were found in this document",
	}
}

func unparsable(detail string, err error) *Failure {
	return &Failure{Kind: FailureUnparsable, Detail: detail, Err: err}
}

func transient(detail string, err error) *Failure {
	return &Failure{Kind: FailureTransient, Detail: detail, Err: err}
}
