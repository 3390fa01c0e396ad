// Package vectorindex is a persistent, named-collection vector similarity
// index stored in SQLite.
//
// Each collection is bound to the embedding model and dimension of its first
// batch. Later writes or queries with another model fail with
// types.ErrModelMismatch, so vectors from different models never mix.
//
//	idx, err := vectorindex.New("data/vectors.db", vectorindex.Options{})
//	err = idx.AddBatch(ctx, "documents_index", "local-embeddings", docs, vectors)
//	hits, err := idx.Query(ctx, "documents_index", "local-embeddings", queryVec, 30)
//	for _, h := range hits {
//	    fmt.Printf("%s %.4f\n", h.ID, h.Distance) // ascending cosine distance
//	}
//
// Querying a collection that does not exist returns an empty result together
// with types.ErrIndexNotFound.
//
// Distance is 1 - cosine similarity. It is computed in SQL with
// vec_distance_cosine when built with the sqlite_vec tag, and in Go otherwise.
package vectorindex
