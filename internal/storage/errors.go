package storage

import "errors"

var (
	ErrQdrantUnreachable   = errors.New("qdrant server unreachable")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrVectorCountMismatch = errors.New("unit and vector counts differ")
	ErrMissingPartition    = errors.New("document id and owner are required")
)
