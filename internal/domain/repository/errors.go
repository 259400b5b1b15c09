package repository

import "fmt"

// PersistenceError wraps a failed registry or store write. It must propagate
// to the caller: a swallowed persistence failure would let the pipeline
// believe a model swap happened when it did not.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
