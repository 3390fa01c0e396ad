// Package embedder turns document and query text into vectors.
//
// Three providers are available. Jina and OpenAI call hosted embeddings
// APIs with retry and exponential backoff. The local provider works
// offline, hashing each token into a fixed number of buckets, and is the
// default when no API key is configured.
//
// Provider selection:
//
//  1. RAG_EMBEDDING_PROVIDER when set
//  2. Jina when JINA_API_KEY is set
//  3. OpenAI when OPENAI_API_KEY is set
//  4. local otherwise
//
// Embed splits large inputs into provider-sized batches and guarantees one
// vector per text:
//
//	emb, err := embedder.New(cfg.Embedding)
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vectors, err := embedder.Embed(ctx, emb, emb.Model(), texts)
//
// Embeddings are cached in an LRU keyed by model and content hash.
package embedder
