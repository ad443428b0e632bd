package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Index stores documents with their vectors and answers kNN queries.
//
// Vectors live in one row-major matrix. The flat backend scores a query with
// a single matrix-vector product (inner product, meaningful as cosine for
// normalized input). The bruteforce backend computes cosine similarity per
// row in float64. Both rank with a stable sort, so equal scores keep
// insertion order.
type Index struct {
	mu        sync.RWMutex
	backend   string
	dim       int
	matrix    []float32
	docs      []entity.Document
	positions map[int64]int
	nextID    int64
	logger    *zap.Logger
}

func New(cfg config.VectorIndexConfig, dim int, logger *zap.Logger) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", entity.ErrInvalidParameter, dim)
	}

	backend := cfg.Backend
	switch backend {
	case config.IndexBackendFlat, config.IndexBackendBruteForce:
	default:
		logger.Warn("unknown vector index backend, using brute-force scan", zap.String("backend", backend))
		backend = config.IndexBackendBruteForce
	}

	logger.Info("vector index created",
		zap.String("backend", backend),
		zap.Int("dimension", dim),
	)

	return &Index{
		backend:   backend,
		dim:       dim,
		positions: make(map[int64]int),
		nextID:    1,
		logger:    logger,
	}, nil
}

// Add stores docs with their vectors. A document whose ID is already present
// is replaced in place; ID 0 gets the next free ID. The batch is validated
// first and applied as a whole.
func (x *Index) Add(ctx context.Context, vectors [][]float32, docs []entity.Document) error {
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: %d vectors, %d documents", entity.ErrLengthMismatch, len(vectors), len(docs))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("document %d: %w", i, entity.ErrEmptyVector)
		}
		if len(v) != x.dim {
			return fmt.Errorf("document %d: %w: got %d, want %d", i, entity.ErrDimensionMismatch, len(v), x.dim)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var added, replaced int
	for i, v := range vectors {
		doc := docs[i].Clone()
		if doc.ID == 0 {
			doc.ID = x.nextID
		}
		if doc.ID >= x.nextID {
			x.nextID = doc.ID + 1
		}

		if pos, ok := x.positions[doc.ID]; ok {
			copy(x.matrix[pos*x.dim:(pos+1)*x.dim], v)
			x.docs[pos] = doc
			replaced++
			continue
		}

		x.positions[doc.ID] = len(x.docs)
		x.docs = append(x.docs, doc)
		x.matrix = append(x.matrix, v...)
		added++
	}

	ctxzap.Debug(ctx, "documents indexed",
		zap.Int("added", added),
		zap.Int("replaced", replaced),
		zap.Int("size", len(x.docs)),
	)

	return nil
}

// Search returns the k most similar documents, best first. k is clamped to
// the index size; an empty index or k <= 0 gives an empty slice.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]entity.RetrievalResult, error) {
	return x.search(ctx, query, k, nil)
}

// SearchCategory is Search restricted to documents of category
func (x *Index) SearchCategory(ctx context.Context, query []float32, k int, category entity.Category) ([]entity.RetrievalResult, error) {
	return x.search(ctx, query, k, func(d *entity.Document) bool {
		return d.Category == category
	})
}

func (x *Index) search(ctx context.Context, query []float32, k int, keep func(*entity.Document) bool) ([]entity.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.docs)
	if n == 0 || k <= 0 {
		return []entity.RetrievalResult{}, nil
	}

	var (
		scores []float64
		err    error
	)
	if x.backend == config.IndexBackendFlat {
		scores, err = x.innerProducts(query)
		if err != nil {
			ctxzap.Warn(ctx, "flat index search failed, falling back to brute-force scan", zap.Error(err))
			scores, err = x.cosines(query)
		}
	} else {
		scores, err = x.cosines(query)
	}
	if err != nil {
		return nil, err
	}

	order := make([]int, 0, n)
	for i := range x.docs {
		if keep == nil || keep(&x.docs[i]) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	k = min(k, len(order))

	results := make([]entity.RetrievalResult, 0, k)
	for rank, pos := range order[:k] {
		doc := x.docs[pos].Clone()
		results = append(results, entity.RetrievalResult{
			DocumentID: doc.ID,
			Text:       doc.Text,
			Score:      scores[pos],
			Rank:       rank + 1,
			Category:   doc.Category,
			Topic:      doc.Topic,
			Metadata:   doc.Metadata,
		})
	}

	return results, nil
}

func (x *Index) innerProducts(query []float32) (scores []float64, err error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", entity.ErrDimensionMismatch, len(query), x.dim)
	}

	defer func() {
		if r := recover(); r != nil {
			scores, err = nil, fmt.Errorf("blas gemv: %v", r)
		}
	}()

	n := len(x.docs)
	out := make([]float32, n)
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: n, Cols: x.dim, Stride: x.dim, Data: x.matrix},
		blas32.Vector{N: x.dim, Inc: 1, Data: query},
		0,
		blas32.Vector{N: n, Inc: 1, Data: out},
	)

	scores = make([]float64, n)
	for i, s := range out {
		scores[i] = float64(s)
	}
	return scores, nil
}

func (x *Index) cosines(query []float32) ([]float64, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", entity.ErrDimensionMismatch, len(query), x.dim)
	}

	qNorm := norm(query)
	scores := make([]float64, len(x.docs))
	for i := range x.docs {
		row := x.matrix[i*x.dim : (i+1)*x.dim]
		rNorm := norm(row)
		if qNorm == 0 || rNorm == 0 {
			continue
		}

		var dot float64
		for j := range row {
			dot += float64(row[j]) * float64(query[j])
		}
		scores[i] = dot / (qNorm * rNorm)
	}
	return scores, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

func (x *Index) Dimension() int {
	return x.dim
}

// Backend names the scoring strategy in use
func (x *Index) Backend() string {
	return x.backend
}

// Documents returns copies of the stored documents in insertion order
func (x *Index) Documents() []entity.Document {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]entity.Document, len(x.docs))
	for i, d := range x.docs {
		out[i] = d.Clone()
	}
	return out
}
