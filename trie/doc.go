// Package trie implements variable-granularity term generation and range
// decomposition over trie-encoded 64-bit values.
//
// A value is indexed once per precision level: level zero is the exact value,
// each coarser level drops another precisionStep low bits. A range query is
// decomposed into spans of such levels so that a handful of coarse terms,
// plus a few full-precision boundary terms, cover the range exactly. This
// turns a linear scan over per-value postings into a union of at most
// O(levels * 2^step) term matches.
//
// Terms, Decompose and the Decomposition result are pure values with no
// shared state; they are safe for unrestricted concurrent use.
package trie
