// Package index implements a small in-memory segment subsystem: a Writer
// that seals buffered documents into immutable segments and merges them, and
// point-in-time Readers over the current segment set.
//
// It exists to drive the filter cache with a real segment lifecycle:
//
//	w := index.NewWriter()
//	_ = w.AddDocument(index.Document{"field": "value"})
//	_ = w.Commit()                // seals a new segment
//	r, _ := index.OpenReader(w)   // references the current segments
//	_ = w.ForceMerge(1)           // merged segment gets a fresh ID
//	_ = r.Close()                 // old segments lose their last reference
//
// A segment reaches end-of-life when neither the writer nor any open reader
// references it. At that point its close listeners fire exactly once.
package index
