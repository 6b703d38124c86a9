// Package ingest turns documents into stored vectors.
//
// A Pipeline archives the raw document bytes, splits the text into chunks,
// embeds the chunks concurrently and inserts the embedded chunks into a
// collection in chunk order. Chunks that fail to embed are reported in the
// result and skipped; they never fail the whole document.
//
//	p, err := ingest.New(sink, func(o *ingest.Options) {
//	    o.Embedder = embed.NewHash(256)
//	    o.Concurrency = 4
//	})
//	res, err := p.Ingest(ctx, ingest.Request{
//	    CollectionID: id,
//	    Document:     ingest.Document{Filename: "a.txt", Text: text},
//	    Strategy:     chunk.DefaultStrategy(),
//	    Embed:        true,
//	})
package ingest
