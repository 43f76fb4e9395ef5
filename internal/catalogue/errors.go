package catalogue

import "fmt"

// UnknownReportError is returned when a report name is not in the catalogue.
type UnknownReportError struct {
	Name string
}

func (e *UnknownReportError) Error() string {
	return fmt.Sprintf("catalogue: unknown report %q", e.Name)
}

// QueryExecutionError is returned when the engine rejects or fails a report
// query, or its result cannot be read.
type QueryExecutionError struct {
	Report string
	Err    error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("catalogue: report %q failed: %v", e.Report, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }
