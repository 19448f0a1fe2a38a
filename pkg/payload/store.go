// Package payload caches the raw bytes a glTF document refers to and reads
// typed, densely packed arrays out of them.
//
// A Builder collects payloads from three sources (the embedded binary chunk,
// external buffer files and external image files). Freeze turns it into an
// immutable Store, which is the only type the read functions accept, so reads
// can never observe a store that is still being filled.
package payload

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/multierr"
)

// Payload errors.
var (
	ErrMissingReference = errors.New("missing reference")
	ErrOutOfBounds      = errors.New("read out of bounds")
	ErrMalformed        = errors.New("malformed read request")
	ErrIO               = errors.New("payload I/O failure")
	ErrNotExternal      = errors.New("resource is not external")
	ErrInvalidURI       = errors.New("invalid resource URI")
	ErrFrozen           = errors.New("payload store is frozen")
)

// Payload is one immutable byte sequence held by a store.
type Payload struct {
	data   []byte
	origin Origin
	path   string
}

// Len returns the payload size in bytes.
func (p Payload) Len() int {
	return len(p.data)
}

// Origin returns the source the payload was cached from.
func (p Payload) Origin() Origin {
	return p.origin
}

// Path returns the file the payload was read from, or "" for the embedded
// chunk and data URIs.
func (p Payload) Path() string {
	return p.path
}

// Bytes returns a copy of the payload.
func (p Payload) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// sourceIndex maps document indices to slots, one table per origin.
type sourceIndex [originCount]map[uint32]int

func newSourceIndex() sourceIndex {
	var idx sourceIndex
	for i := range idx {
		idx[i] = make(map[uint32]int)
	}
	return idx
}

// Builder collects payloads during the build phase of an import job.
// It is not safe for concurrent use.
type Builder struct {
	mode   Mode
	slots  []Payload
	index  sourceIndex
	frozen *Store
}

// NewBuilder creates an empty builder. The mode is fixed for the builder and
// the store it produces.
func NewBuilder(mode Mode) *Builder {
	return &Builder{
		mode:  mode,
		index: newSourceIndex(),
	}
}

// Mode returns the store mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// put appends a new slot and points index at it. Earlier slots for the same
// index stay allocated but unreferenced.
func (b *Builder) put(origin Origin, index uint32, p Payload) error {
	if b.frozen != nil {
		return ErrFrozen
	}
	b.slots = append(b.slots, p)
	b.index[origin][index] = len(b.slots) - 1
	return nil
}

// CacheEmbeddedChunk stores a segment of the binary chunk under index.
// The builder takes ownership of data; the caller must not modify it later.
func (b *Builder) CacheEmbeddedChunk(index uint32, data []byte) error {
	return b.put(OriginEmbeddedBinary, index, Payload{data: data, origin: OriginEmbeddedBinary})
}

// CacheImage reads the external image behind img.URI, resolved against root.
// An image without a URI lives in a bufferView and yields ErrNotExternal.
func (b *Builder) CacheImage(index uint32, root string, img *gltf.Image) error {
	if b.frozen != nil {
		return ErrFrozen
	}
	if img == nil {
		return fmt.Errorf("%w: image %d", ErrMissingReference, index)
	}
	if img.URI == "" {
		return fmt.Errorf("%w: image %d", ErrNotExternal, index)
	}

	data, path, err := loadURI(root, img.URI)
	if err != nil {
		return fmt.Errorf("image %d: %w", index, err)
	}
	return b.put(OriginExternalImage, index, Payload{data: data, origin: OriginExternalImage, path: path})
}

// CacheBuffer reads the buffer behind buf.URI, resolved against root. Data
// URIs are decoded in memory. A buffer without a URI is the binary chunk and
// yields ErrNotExternal.
func (b *Builder) CacheBuffer(index uint32, root string, buf *gltf.Buffer) error {
	if b.frozen != nil {
		return ErrFrozen
	}
	if buf == nil {
		return fmt.Errorf("%w: buffer %d", ErrMissingReference, index)
	}
	if buf.URI == "" {
		return fmt.Errorf("%w: buffer %d", ErrNotExternal, index)
	}

	data, path, err := loadURI(root, buf.URI)
	if err != nil {
		return fmt.Errorf("buffer %d: %w", index, err)
	}
	return b.put(OriginExternalBuffer, index, Payload{data: data, origin: OriginExternalBuffer, path: path})
}

// CacheAll caches every image and buffer of doc. Items that are not external
// are skipped. Load failures do not stop the batch; they are combined into
// the returned error.
func (b *Builder) CacheAll(root string, doc *gltf.Document) error {
	if b.frozen != nil {
		return ErrFrozen
	}
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMissingReference)
	}

	var errs error
	for i, img := range doc.Images {
		errs = multierr.Append(errs, skipLogical(b.CacheImage(uint32(i), root, img)))
	}
	for i, buf := range doc.Buffers {
		errs = multierr.Append(errs, skipLogical(b.CacheBuffer(uint32(i), root, buf)))
	}
	return errs
}

// skipLogical drops errors that describe a document shape rather than a
// load failure.
func skipLogical(err error) error {
	if errors.Is(err, ErrNotExternal) || errors.Is(err, ErrMissingReference) {
		return nil
	}
	return err
}

// Freeze ends the build phase and returns the read-only store. Any cache
// call on b afterwards returns ErrFrozen; further Freeze calls return the
// same store.
func (b *Builder) Freeze() *Store {
	if b.frozen != nil {
		return b.frozen
	}

	b.frozen = &Store{mode: b.mode, slots: b.slots, index: b.index}
	b.slots = nil
	b.index = sourceIndex{}
	return b.frozen
}

// Store is the frozen, immutable result of a Builder. It is safe for
// concurrent use.
type Store struct {
	mode  Mode
	slots []Payload
	index sourceIndex
}

// Mode returns the store mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Lookup returns the payload cached under index for origin. It reports false
// when index has no mapping or the mapped slot is absent or empty.
func (s *Store) Lookup(origin Origin, index uint32) (Payload, bool) {
	if s == nil || !origin.valid() {
		return Payload{}, false
	}
	slot, ok := s.index[origin][index]
	if !ok || slot < 0 || slot >= len(s.slots) {
		return Payload{}, false
	}
	p := s.slots[slot]
	if len(p.data) == 0 {
		return Payload{}, false
	}
	return p, true
}

// Count returns the number of indices mapped for origin.
func (s *Store) Count(origin Origin) int {
	if s == nil || !origin.valid() {
		return 0
	}
	return len(s.index[origin])
}
