package logging

import "fmt"

// OperationError annotates an error with the operation that failed and the
// storage key of the attempt it belongs to, if any.
type OperationError struct {
	Operation string
	ObjectKey string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.ObjectKey != "" {
		return fmt.Sprintf("%s (object_key=%s): %v", e.Operation, e.ObjectKey, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err with the operation and object key. A nil err
// stays nil.
func NewOperationError(operation, objectKey string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, ObjectKey: objectKey, Err: err}
}
