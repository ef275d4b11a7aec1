// Package filter defines filter identities and a small evaluation engine that
// turns a filter into a bitset of matching rows for one segment.
//
// Every Filter has a canonical Key. Logically identical filters produce the
// same Key regardless of how they were built, which is what makes repeated
// lookups hit the cache:
//
//	filter.And(filter.Term("a", "1"), filter.Term("b", "2")).Key() ==
//	    filter.And(filter.Term("b", "2"), filter.Term("a", "1")).Key()
//
// Evaluation reads postings through the Reader interface, which the index
// package's segments implement.
package filter
