package index

import (
	"io"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a 32-bit roaring bitmap of document IDs.
// It wraps the official roaring implementation.
type Bitmap struct {
	rb *roaring.Bitmap
}

// bitmapPool reuses Bitmap instances in query hot paths.
var bitmapPool = sync.Pool{
	New: func() any {
		return &Bitmap{rb: roaring.New()}
	},
}

// NewBitmap creates a new empty bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// GetBitmap gets a cleared bitmap from the pool. Call PutBitmap when done.
func GetBitmap() *Bitmap {
	b := bitmapPool.Get().(*Bitmap)
	b.rb.Clear()
	return b
}

// PutBitmap returns a bitmap to the pool.
func PutBitmap(b *Bitmap) {
	if b == nil {
		return
	}
	// Clear before pooling to release container memory.
	b.rb.Clear()
	bitmapPool.Put(b)
}

// Add adds a document ID.
func (b *Bitmap) Add(id uint32) {
	b.rb.Add(id)
}

// AddMany adds a batch of document IDs.
func (b *Bitmap) AddMany(ids []uint32) {
	b.rb.AddMany(ids)
}

// Contains checks membership of a document ID.
func (b *Bitmap) Contains(id uint32) bool {
	return b.rb.Contains(id)
}

// Or merges other into b.
func (b *Bitmap) Or(other *Bitmap) {
	b.rb.Or(other.rb)
}

// Cardinality returns the number of document IDs in the bitmap.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// IsEmpty reports whether the bitmap contains no document IDs.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// ToArray returns the document IDs in ascending order.
func (b *Bitmap) ToArray() []uint32 {
	return b.rb.ToArray()
}

// ForEach iterates the document IDs in ascending order, stopping when fn
// returns false.
func (b *Bitmap) ForEach(fn func(id uint32) bool) {
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// WriteTo serializes the bitmap in the portable roaring format.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	return b.rb.WriteTo(w)
}

// ReadFrom deserializes a bitmap written by WriteTo.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	return b.rb.ReadFrom(r)
}
