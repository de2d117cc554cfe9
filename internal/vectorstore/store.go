package vectorstore

import "context"

// Hit is one nearest-neighbor result. Distance is the store's native metric
// (cosine distance for Weaviate, 0 = identical).
type Hit struct {
	ID       string
	Payload  map[string]any
	Distance float64
}

// Store is the contract the pipeline requires from a vector database.
// Implementations must be safe for concurrent reads.
type Store interface {
	Query(ctx context.Context, vector []float32, limit int) ([]Hit, error)
	Get(ctx context.Context, id string) (map[string]any, error)
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
