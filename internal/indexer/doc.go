// Package indexer writes documents into both stores.
//
// Ingestion is a two-phase write. Phase one extracts each file's metadata
// and inserts the relational record with index status "pending". Phase two
// embeds the pending documents in batches and upserts their vectors; the
// records then become "indexed", or "unindexed" when the batch failed.
// There is no transaction spanning the two stores, so the status column is
// what makes a partial failure visible.
//
//	idx := indexer.New(extractor.New(), store, vectors, emb,
//	    indexer.WithLogger(logger),
//	    indexer.WithCacheInvalidator(searcher))
//
//	report, err := idx.IngestDir(ctx, "./docs", indexer.IngestRequest{})
//	fmt.Println(report.Count(indexer.OutcomeIndexed), "indexed")
//
// Documents are processed in caller order and a failure on one never stops
// the rest; each outcome is recorded in the Report. A second ingestion of a
// filename is rejected and leaves the first record and vector untouched.
//
// Reconcile compares relational filenames with the vector ids of an index
// and lists what is missing on either side. Repair re-embeds the flagged
// records from the source path saved at ingestion.
//
// Only one ingestion or repair runs at a time per Indexer.
package indexer
