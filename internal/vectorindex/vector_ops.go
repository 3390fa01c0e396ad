package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/docsearch/internal/storage"
)

// searchVector returns the k nearest records of a collection by cosine distance
func searchVector(ctx context.Context, q storage.Querier, collection string, queryVector []float32, k int) ([]Hit, error) {
	// Use SQL-based distance when sqlite-vec is available
	if storage.VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, collection, queryVector, k)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, q, collection, queryVector, k)
}

// searchVectorOptimized lets sqlite-vec compute, order and limit in SQL
func searchVectorOptimized(ctx context.Context, q storage.Querier, collection string, queryVector []float32, k int) ([]Hit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT document_id, raw_text, vec_distance_cosine(vector, ?) AS distance
		FROM vectors
		WHERE collection = ?
		ORDER BY distance ASC, document_id ASC
		LIMIT ?`,
		serializeVector(queryVector), collection, k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.RawText, &h.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// searchVectorFallback loads the collection and ranks it in Go
func searchVectorFallback(ctx context.Context, q storage.Querier, collection string, queryVector []float32, k int) ([]Hit, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT document_id, raw_text, vector FROM vectors WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeDistances(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sortHits(candidates)

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// computeDistances scores every row against the query vector
func computeDistances(rows *sql.Rows, queryVector []float32) ([]Hit, error) {
	hits := make([]Hit, 0)
	for rows.Next() {
		var (
			h    Hit
			blob []byte
		)
		if err := rows.Scan(&h.ID, &h.RawText, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		h.Distance = cosineDistance(queryVector, vector)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// sortHits orders hits by ascending distance, then by id
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// cosineDistance is 1 - cosine similarity, in [0, 2]
func cosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}
