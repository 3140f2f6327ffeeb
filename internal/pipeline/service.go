// Package pipeline is the core API: upload, chat, delete and rename over the
// extraction, indexing and answering stages.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/answer"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/chunking"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/conversation"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/extract"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/heuristics"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/keyed"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/retrieval"
)

const DefaultMaxFileSize = 10 * 1024 * 1024

// Extractor turns PDF bytes into categorized units and images.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte, filename string) (*extract.Extraction, error)
}

// Captioner describes images with the vision model.
type Captioner interface {
	Caption(ctx context.Context, images []extract.Image) []extract.CaptionResult
}

// Indexer is the semantic index, partitioned by (document, owner).
type Indexer interface {
	Upsert(ctx context.Context, documentID, owner string, units []document.ContentUnit) error
	Query(ctx context.Context, documentID, owner, text string, k int) ([]document.RetrievalResult, error)
	Delete(ctx context.Context, documentID, owner string) error
}

// ImageStore keeps raw images addressed by caption element ID.
type ImageStore interface {
	PutAll(ctx context.Context, key document.Key, images map[string][]byte) error
	Get(ctx context.Context, key document.Key, elementID string) ([]byte, bool, error)
	DeleteAll(ctx context.Context, key document.Key) error
}

// Registry persists document records.
type Registry interface {
	Create(ctx context.Context, doc *document.Document) error
	Get(ctx context.Context, id, owner string) (*document.Document, error)
	List(ctx context.Context, owner string) ([]document.Document, error)
	Rename(ctx context.Context, id, owner, filename string) (bool, error)
	Delete(ctx context.Context, id, owner string) (bool, error)
	DocumentName(ctx context.Context, id, owner string) (string, bool)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Extractor  Extractor
	Captioner  Captioner
	Chunker    *chunking.Chunker
	Index      Indexer
	Images     ImageStore
	Documents  Registry
	Completer  answer.Completer
	Heuristics *heuristics.Holder
	Logger     *slog.Logger
}

// Config holds the tunables of a Service. Zero values select defaults.
type Config struct {
	TopK               int
	MaxFileSize        int64
	SummarizeThreshold int
	MaxContextTokens   int
	MaxContextMessages int
}

// Service runs the upload and chat pipelines. Uploads and deletes of the
// same (document, owner) are mutually exclusive.
type Service struct {
	extractor   Extractor
	captioner   Captioner
	chunker     *chunking.Chunker
	index       Indexer
	images      ImageStore
	docs        Registry
	router      *retrieval.Router
	classifier  *retrieval.Classifier
	convo       *conversation.Manager
	synth       *answer.Synthesizer
	locks       *keyed.Locker
	maxFileSize int64
	logger      *slog.Logger

	cleanupBackoff func() backoff.BackOff
	now            func() time.Time
}

// New wires a Service.
func New(deps Deps, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chunker := deps.Chunker
	if chunker == nil {
		chunker = chunking.NewChunker()
	}
	captioner := deps.Captioner
	if captioner == nil {
		captioner = extract.NewCaptioner(deps.Completer, logger)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	convo := conversation.NewManager(deps.Completer, logger)
	if cfg.SummarizeThreshold > 0 {
		convo.SummarizeThreshold = cfg.SummarizeThreshold
	}
	if cfg.MaxContextTokens > 0 {
		convo.MaxTokens = cfg.MaxContextTokens
	}
	if cfg.MaxContextMessages > 0 {
		convo.Window = cfg.MaxContextMessages
	}

	return &Service{
		extractor:   deps.Extractor,
		captioner:   captioner,
		chunker:     chunker,
		index:       deps.Index,
		images:      deps.Images,
		docs:        deps.Documents,
		router:      retrieval.NewRouter(deps.Index, cfg.TopK, logger),
		classifier:  retrieval.NewClassifier(deps.Completer, deps.Heuristics, logger),
		convo:       convo,
		synth:       answer.NewSynthesizer(deps.Completer, deps.Images, deps.Documents, logger),
		locks:       keyed.NewLocker(),
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
		cleanupBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		now: time.Now,
	}
}

// removePartition deletes the index and image partitions of key. Failures
// are retried and returned wrapped in ErrCleanup.
func (s *Service) removePartition(ctx context.Context, key document.Key) error {
	var errs []error
	if err := s.index.Delete(ctx, key.DocumentID, key.Owner); err != nil {
		errs = append(errs, err)
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := s.images.DeleteAll(ctx, key)
		if err != nil {
			s.logger.Warn("Image delete failed", "document_id", key.DocumentID, "owner", key.Owner, "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(s.cleanupBackoff(), ctx))
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return newError(ErrCleanup, "Failed to release document resources", errors.Join(errs...))
	}
	return nil
}
