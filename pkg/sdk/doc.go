// Package scaledex embeds the clinical scale search engine in a Go program.
//
// The client runs the same pipeline as the HTTP service: anonymous quota
// gate, candidate fetch from Redis or Badger, optional query embedding,
// keyword/semantic/vector ranking and usage counters.
//
//	client, _ := scaledex.New(ctx, scaledex.WithBadgerInMemory())
//	defer client.Close()
//
//	_, _ = client.Import(ctx, []scaledex.Scale{{
//	    ID:       "phq-9",
//	    NameEn:   "Patient Health Questionnaire-9",
//	    Acronym:  "PHQ-9",
//	    Category: "depression",
//	    Status:   scaledex.StatusPublished,
//	}})
//
//	page, _ := client.Search(ctx, scaledex.Query{Text: "depression", Mode: scaledex.ModeHybrid})
//	for _, r := range page.Results {
//	    fmt.Println(r.ID, r.Score)
//	}
package scaledex
