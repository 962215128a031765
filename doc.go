// Package numtrie indexes signed 64-bit integers as order-preserving trie
// terms and answers range queries over them.
//
// Every value is encoded at a ladder of precision levels. The lowest level
// keeps all 64 bits, each level above drops another step bits. A range
// query then decomposes into a small disjoint union of such terms: fine
// terms cover the misaligned edges of the range, coarse terms cover the
// aligned middle. For a precision step p the decomposition never needs
// more than about 64/p*2^p terms regardless of how many values the range
// spans.
//
// The codec, trie and index packages expose the layers separately. The
// root package ties them into a Store:
//
//	s := numtrie.New(numtrie.WithPrecisionStep(4))
//	_ = s.Insert(ctx, "price", 1, 1500)
//	_ = s.Insert(ctx, "price", 2, 2500)
//	s.Seal()
//
//	res, _ := s.RangeSearch(ctx, "price", trie.Between(1000, 2000))
//	// res.Docs == []uint32{1}
//
// Sealed stores snapshot to any blobstore.Store (local disk, memory, S3,
// MinIO) with optional s2, zstd or lz4 compression.
package numtrie
