// Package cosmerec embeds the cosmetic recommendation engine in a Go program.
//
// The engine turns a skin-condition diagnosis and user preferences into a
// search query, finds similar products in a vector index and re-ranks them
// with condition and skin-type bonuses.
//
// # Setup
//
//	client, _ := cosmerec.New(ctx,
//	    cosmerec.WithValkey("localhost:6379", ""),
//	    cosmerec.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
// # Indexing a corpus
//
// Corpora are CSV, Parquet or SQLite files with Korean or English column
// names. Indexing replaces the whole index.
//
//	report, _ := client.IndexFile(ctx, "cosmetics.csv", "")
//
// # Recommending
//
//	res, _ := client.Recommend(ctx, cosmerec.Request{
//	    Condition:    "건선",
//	    SkinType:     "건성, 민감성",
//	    PriceCeiling: 30000,
//	    TopK:         3,
//	})
//	for _, r := range res.Products {
//	    fmt.Println(r.Product.Name, r.Score, r.Bonuses)
//	}
package cosmerec
