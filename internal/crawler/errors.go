package crawler

import "fmt"

// Stages at which a run can be aborted
const (
	StageFirstPage   = "fetch first page"
	StageMetadata    = "extract gallery metadata"
	StageOutputDir   = "create output directory"
	StageInterrupted = "interrupted"
)

// FatalError aborts the whole run
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
