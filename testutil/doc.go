// Package testutil provides testing utilities for bitsetcache.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic document generators, segment fixtures and
// instrumented compute functions.
//
// # Random Documents
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.Documents(1000, map[string][]string{
//	    "type":  {"parent", "child"},
//	    "color": {"red", "green", "blue"},
//	})
//
// # Segment Fixtures
//
//	w, r := testutil.Segments(t, docs[:500], docs[500:])
//
// # Ground Truth
//
//	want := testutil.ExpectedRows(segDocs, "type", "parent")
//
// # Instrumented Compute Functions
//
//	g := testutil.NewGate(bitset.New(1, 2))
//	go c.Resolve(ctx, seg, key, g.Compute)
//	g.WaitStarted(t)
//	g.Release()
package testutil
