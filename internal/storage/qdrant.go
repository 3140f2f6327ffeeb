package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
)

const upsertBatchSize = 100

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client    *qdrant.Client
	host      string
	port      int
	dimension int
	logger    *slog.Logger
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port, dimension int, logger *slog.Logger) (*QdrantStorage, error) {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:    client,
		host:      host,
		port:      port,
		dimension: dimension,
		logger:    logger,
	}

	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the units collection with a named cosine vector
// and keyword payload indexes on the partition fields. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	s.logger.Info("Created collection", "collection", CollectionName, "dimension", s.dimension)
	return nil
}

// createPayloadIndexes indexes every field used in partition filters.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	for _, field := range []string{fieldDocumentID, fieldOwner, fieldKind} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// partitionFilter matches every point of one (document, owner) partition.
func partitionFilter(key document.Key) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(fieldDocumentID, key.DocumentID),
			qdrant.NewMatch(fieldOwner, key.Owner),
		},
	}
}

func checkKey(key document.Key) error {
	if key.DocumentID == "" || key.Owner == "" {
		return ErrMissingPartition
	}
	return nil
}

// UpsertUnits stores units with their vectors in the partition of key.
// Points are written in batches of 100.
func (s *QdrantStorage) UpsertUnits(ctx context.Context, key document.Key, units []document.ContentUnit, vectors [][]float32) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if len(units) != len(vectors) {
		return fmt.Errorf("%w: %d units, %d vectors", ErrVectorCountMismatch, len(units), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: unit %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), s.dimension)
		}
	}

	for i := 0; i < len(units); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(units))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			u := units[j]
			points = append(points, &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(PointID(key, u.ElementID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					VectorName: qdrant.NewVector(vectors[j]...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldDocumentID:   key.DocumentID,
					fieldOwner:        key.Owner,
					fieldKind:         string(u.Kind),
					fieldElementID:    u.ElementID,
					fieldPage:         int64(u.Page),
					fieldContent:      u.Content,
					fieldSectionTitle: u.IsSectionTitle,
					fieldMergedCount:  int64(u.MergedCount),
				}),
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchUnits returns up to k units of the partition nearest to vector,
// ordered by similarity descending.
func (s *QdrantStorage) SearchUnits(ctx context.Context, key document.Key, vector []float32, k int) ([]document.RetrievalResult, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	vectorName := VectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          &vectorName,
		Filter:         partitionFilter(key),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}

	out := make([]document.RetrievalResult, 0, len(results))
	for _, r := range results {
		p := r.Payload
		out = append(out, document.RetrievalResult{
			Unit: document.ContentUnit{
				ElementID:      p[fieldElementID].GetStringValue(),
				DocumentID:     key.DocumentID,
				Page:           int(p[fieldPage].GetIntegerValue()),
				Kind:           document.Kind(p[fieldKind].GetStringValue()),
				Content:        p[fieldContent].GetStringValue(),
				IsSectionTitle: p[fieldSectionTitle].GetBoolValue(),
				MergedCount:    int(p[fieldMergedCount].GetIntegerValue()),
			},
			DocumentID: key.DocumentID,
			Score:      float64(r.Score),
		})
	}
	return out, nil
}

// DeleteDocument removes every point of the partition.
func (s *QdrantStorage) DeleteDocument(ctx context.Context, key document.Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelectorFilter(partitionFilter(key)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete partition %s: %w", key, err)
	}
	return nil
}

// CountUnits returns the number of points stored for the partition.
func (s *QdrantStorage) CountUnits(ctx context.Context, key document.Key) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter:         partitionFilter(key),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return count, nil
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves collection statistics including total points count.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}
