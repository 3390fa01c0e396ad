// Package searcher answers natural-language queries over the document
// collection.
//
// A search embeds the query, takes the k nearest neighbours from the vector
// index and joins every hit with its relational record. An optional type
// filter keeps only documents of one type; it ignores case and a leading
// dot, and hits without a relational record never pass it. Results keep the
// index's rank order and raw cosine distances, lower being closer.
//
//	s := searcher.NewSearcher(store, index, emb, searcher.WithLogger(logger))
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:      "quarterly planning",
//	    TypeFilter: "txt",
//	})
//	for _, r := range resp.Results {
//	    fmt.Printf("%d %s %.3f\n", r.Rank, r.Filename, r.Score)
//	}
//
// A missing index is not an error: the response is empty and IndexMissing
// is set. Responses can be cached per request in an LRU with a TTL;
// ingestion clears it through InvalidateCache.
package searcher
