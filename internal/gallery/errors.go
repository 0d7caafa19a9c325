package gallery

import "fmt"

// ExtractionError reports that a required piece of gallery metadata could not
// be read from a page
type ExtractionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
