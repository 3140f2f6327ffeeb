package pipeline

import (
	"errors"
	"fmt"
)

// Failure classes surfaced to callers, matched with errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("document not found")
	ErrExtraction            = errors.New("extraction error")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrSynthesis             = errors.New("synthesis error")
	ErrCleanup               = errors.New("cleanup error")
)

// Error is a classified pipeline failure. Message is safe to show to an
// untrusted caller; Err keeps the internal cause for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(id string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("Document %s not found", id)}
}

func newError(kind error, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

const (
	msgEmbeddingDown  = "Embedding backend not running. Start the embedding service and retry."
	msgIndexDown      = "Vector index unavailable. Check that Qdrant is running and retry."
	msgCompletionDown = "Language model service unavailable. Please retry shortly."
	msgExtractorDown  = "PDF extraction service unavailable. Please retry shortly."
	msgRegistryDown   = "Document storage unavailable. Please retry shortly."
)

// PublicMessage renders err for an untrusted caller. Internal detail is never
// included beyond the curated messages of classified errors.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid request."
	case errors.Is(err, ErrNotFound):
		return "Document not found."
	case errors.Is(err, ErrExtraction):
		return "Could not extract content from the PDF."
	case errors.Is(err, ErrDependencyUnavailable):
		return "A required service is unavailable. Please retry shortly."
	case errors.Is(err, ErrSynthesis):
		return "Failed to generate an answer. Please try again."
	}
	return "Internal error."
}
