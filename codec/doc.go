// Package codec converts signed 64-bit values into order-preserving,
// shift-tagged term keys.
//
// A key encodes a value whose low `shift` bits have been cleared. Keys of the
// same shift are fixed width and compare lexicographically in the same order
// as the underlying signed values, including across the negative/positive
// boundary. Keys of different shifts carry distinct tag bytes and therefore
// never collide.
//
// The exact byte layout is an internal wire contract between the indexing
// and search sides. Only shift-0 keys round-trip back to an exact value;
// higher-shift keys are lossy by design.
package codec
