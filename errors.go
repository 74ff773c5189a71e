package searchable

import "fmt"

// ConfigurationError reports a builder that was constructed without a required input.
// It is returned by New and never deferred to Condition.
type ConfigurationError struct {
	// Field names the missing or invalid input ("ids", "query", "model").
	Field string
	// Reason is the short description used as the error message.
	Reason string
	// Err is the underlying cause, if any
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("searchable: %s: %v", e.Reason, e.Err)
	}
	return "searchable: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is matches configuration errors on Field, so wrapped variants still satisfy
// errors.Is(err, ErrMissingModel).
func (e *ConfigurationError) Is(target error) bool {
	t, ok := target.(*ConfigurationError)
	if !ok {
		return false
	}
	return t.Field == e.Field && t.Reason == e.Reason
}

var (
	// ErrMissingIDs is returned when the identifier set is nil or empty.
	ErrMissingIDs = &ConfigurationError{Field: "ids", Reason: "missing ids"}
	// ErrMissingQuery is returned when no query descriptor is supplied.
	ErrMissingQuery = &ConfigurationError{Field: "query", Reason: "missing query"}
	// ErrMissingModel is returned when the query's record type is absent or
	// does not expose a table name and searchable key.
	ErrMissingModel = &ConfigurationError{Field: "model", Reason: "missing model"}
)
