// Package index provides an in-memory, presence-only term index for
// trie-encoded numeric fields, with roaring-bitmap postings.
//
// Each field keeps one columnar level per shift: a sorted column of coarse
// keys (sortable domain) aligned with a postings bitmap per key. Writes go
// through Add until Seal freezes the index; sealed reads are lock-free.
// Range matchers binary-search the key columns and OR the postings of every
// key inside the decomposition's spans.
package index
