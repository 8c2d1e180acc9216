// Package livetable embeds the live table query engine in a Go program.
//
// A Client serves table queries over a document corpus held in memory or in Valkey.
// One-shot queries evaluate against the current snapshot; views stay current as the
// corpus changes.
//
//	client, _ := livetable.New(ctx, livetable.WithSeedFile("notes.yaml"))
//	defer client.Close()
//
//	q, _ := livetable.ParseQuery([]byte(`{
//	    "fields": [{"name": "Due", "expr": {"field": "due"}}],
//	    "source": {"folder": "projects"},
//	    "sort": [{"expr": {"field": "due"}}]
//	}`))
//	st := client.Execute(ctx, q, "")
//
//	view, _ := client.Open(q, "")
//	defer view.Close()
//	_ = view.Watch(ctx, func(st livetable.State) { render(st) })
package livetable
