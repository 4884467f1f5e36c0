package dataset

import "fmt"

// LoadError reports that the input could not be read or parsed as a table.
// It is fatal for a run.
type LoadError struct {
	Path string
	Op   string // open|detect|decode|parse
	Line int    // 1-based source line for parse failures, 0 otherwise
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: %s (line %d): %v", e.Path, e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
