// Package document holds the data model shared by the extraction, indexing
// and answering stages.
package document

import (
	"errors"
	"fmt"
	"time"
)

// GuestOwner is the owner recorded for documents uploaded without authentication.
const GuestOwner = "guest"

// Kind classifies a ContentUnit.
type Kind string

const (
	KindText         Kind = "text"
	KindTable        Kind = "table"
	KindImageCaption Kind = "image_caption"
	KindImageRaw     Kind = "image_raw"
)

// Indexable reports whether units of this kind may enter the semantic index.
// Raw images never do; they are reached through their caption's element ID.
func (k Kind) Indexable() bool {
	switch k {
	case KindText, KindTable, KindImageCaption:
		return true
	}
	return false
}

var (
	ErrEmptyContent = errors.New("indexable unit has empty content")
	ErrInvalidPage  = errors.New("unit has negative page number")
	ErrNotIndexable = errors.New("unit kind is not indexable")
)

// ContentUnit is one extracted piece of a document.
type ContentUnit struct {
	ElementID      string // Stable for the lifetime of the document
	DocumentID     string
	Page           int // 1-based, 0 when unknown
	Kind           Kind
	Content        string // Plain text, table HTML, or caption text
	IsSectionTitle bool
	MergedCount    int // Source units folded into this chunk (diagnostic)
}

// Validate checks the invariants required of units entering the index.
func (u ContentUnit) Validate() error {
	if !u.Kind.Indexable() {
		return fmt.Errorf("%w: %s", ErrNotIndexable, u.Kind)
	}
	if u.Content == "" {
		return fmt.Errorf("%w: element %s", ErrEmptyContent, u.ElementID)
	}
	if u.Page < 0 {
		return fmt.Errorf("%w: element %s page %d", ErrInvalidPage, u.ElementID, u.Page)
	}
	return nil
}

// Document is one uploaded PDF.
type Document struct {
	ID         string
	Filename   string
	SizeBytes  int64
	ChunkCount int
	TextCount  int
	TableCount int
	ImageCount int
	UploadedAt time.Time
	Owner      string
}

// Key addresses a document partition. Guest and authenticated partitions for
// the same nominal document ID never collide.
type Key struct {
	DocumentID string
	Owner      string
}

// NewKey builds a Key, mapping an empty owner to GuestOwner.
func NewKey(documentID, owner string) Key {
	return Key{DocumentID: documentID, Owner: NormalizeOwner(owner)}
}

func (k Key) String() string {
	return k.Owner + "/" + k.DocumentID
}

// NormalizeOwner maps the empty owner to GuestOwner.
func NormalizeOwner(owner string) string {
	if owner == "" {
		return GuestOwner
	}
	return owner
}

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a caller-supplied conversation.
type Turn struct {
	Role      Role
	Content   string
	Timestamp string
}

// RetrievalResult is a unit returned by a nearest-neighbour query.
type RetrievalResult struct {
	Unit       ContentUnit
	DocumentID string
	Score      float64
}

// Source is the citation aggregated per document for one answer.
type Source struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Pages        []int  `json:"pages"`
	Kinds        []Kind `json:"kinds"`
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
