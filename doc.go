// Package vecdb provides an in-memory vector database for Go.
//
// A DB holds any number of collections. Each collection has a fixed vector
// dimension and an HNSW index for approximate nearest neighbor search under
// cosine similarity. Records carry typed metadata that can be used to
// filter searches.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := vecdb.New()
//	defer db.Close(ctx)
//
//	c, _ := db.CreateCollection(ctx, "docs", vecdb.WithDimension(3))
//	db.Insert(ctx, c.ID, []float32{1, 0, 0}, metadata.Document{"lang": metadata.String("en")})
//
//	results, _ := db.Search(ctx, c.ID, []float32{1, 0, 0}, 5)
//	for _, r := range results {
//	    fmt.Println(r.RecordID, r.Score)
//	}
//
// # Documents
//
// IngestDocument splits text into chunks (fixed, sentence, paragraph or
// semantic strategy), embeds every chunk with the configured embed.Embedder
// and stores one record per chunk:
//
//	db, _ := vecdb.New(vecdb.WithEmbedder(embed.NewHash(256)))
//	c, _ := db.CreateCollection(ctx, "docs") // dimension taken from the embedder
//	res, _ := db.IngestDocument(ctx, c.ID, vecdb.Document{Text: text}, chunk.DefaultStrategy())
//
// Chunks that fail to embed are reported in the result rather than failing
// the whole document.
//
// # Ledger
//
// With WithLedger, collection metadata is mirrored to an external ledger
// (DynamoDB, Badger or memory). Writes are queued and delivered in the
// background; a failing ledger never fails a local operation. Rehydrate
// and ListCollections restore collections the ledger knows but this
// process does not, as empty shadows keeping the ledger's record count.
//
// # Errors
//
// Errors can be classified with KindOf, or matched with errors.Is against
// the exported sentinels and errors.As against *ErrDimensionMismatch and
// *ErrInvalidDimension.
package vecdb
