package types

import "errors"

// Domain errors shared by the extractor, the stores and the coordinator
var (
	// ErrUnsupportedFormat is returned when a file extension has no extractor
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDuplicateIdentity is returned when a filename is inserted twice
	ErrDuplicateIdentity = errors.New("document already exists")

	// ErrConstraintViolation is returned when a value falls outside its closed set
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound is returned when no record exists for a filename
	ErrNotFound = errors.New("document not found")

	// ErrIndexNotFound is returned when a named vector index does not exist
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrModelMismatch is returned when an index is used with a model other than the one it was built with
	ErrModelMismatch = errors.New("embedding model does not match index")
)
