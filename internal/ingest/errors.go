package ingest

import "fmt"

// IngestionInputError is returned when the extract is missing, unreadable
// or malformed.
type IngestionInputError struct {
	Source string
	Err    error
}

func (e *IngestionInputError) Error() string {
	return fmt.Sprintf("ingest: cannot read %s: %v", e.Source, e.Err)
}

func (e *IngestionInputError) Unwrap() error { return e.Err }

// SchemaProvisioningError is returned when a table cannot be dropped,
// created or indexed.
type SchemaProvisioningError struct {
	Table string
	Err   error
}

func (e *SchemaProvisioningError) Error() string {
	return fmt.Sprintf("ingest: provisioning %s failed: %v", e.Table, e.Err)
}

func (e *SchemaProvisioningError) Unwrap() error { return e.Err }
