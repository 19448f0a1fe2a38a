package payload

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Faultbox/gltfimport/pkg/math"
)

// Element is the closed set of fixed-size, pointer-free element types a
// payload can be read as.
type Element interface {
	~uint8 | ~uint16 | ~uint32 | ~float32 |
		~[2]uint8 | ~[2]uint16 |
		math.Vec2 | math.Vec3 | math.Vec4
}

// SizeOf returns the byte width of one T.
func SizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// ReadRequest selects elements inside a payload.
type ReadRequest struct {
	Start  int // Byte offset of the first element
	Count  int // Number of elements; 0 reads every whole stride that fits
	Stride int // Distance between element starts; 0 means tightly packed
}

// hostLittleEndian reports whether element memory can be filled with a raw
// copy of the little-endian glTF bytes.
var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// Read copies req.Count elements of type T out of p. The request must satisfy
// Stride >= SizeOf[T](), Start >= 0 and Start+Count*Stride <= p.Len(); any
// violation returns a nil slice and an error, never a partial result.
func Read[T Element](p Payload, req ReadRequest) ([]T, error) {
	size := SizeOf[T]()
	stride := req.Stride
	if stride == 0 {
		stride = size
	}
	if stride < size {
		return nil, fmt.Errorf("%w: stride %d is smaller than element size %d", ErrMalformed, stride, size)
	}
	if req.Count < 0 {
		return nil, fmt.Errorf("%w: negative element count %d", ErrMalformed, req.Count)
	}
	if req.Start < 0 {
		return nil, fmt.Errorf("%w: negative start %d", ErrOutOfBounds, req.Start)
	}

	n := len(p.data)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMissingReference)
	}
	if req.Start > n {
		return nil, fmt.Errorf("%w: start %d past payload of %d bytes", ErrOutOfBounds, req.Start, n)
	}

	fit := (n - req.Start) / stride
	count := req.Count
	if count == 0 {
		count = fit
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no whole element fits after byte %d", ErrOutOfBounds, req.Start)
	}
	if count > fit {
		return nil, fmt.Errorf("%w: %d elements of stride %d from byte %d exceed payload of %d bytes",
			ErrOutOfBounds, count, stride, req.Start, n)
	}

	out := make([]T, count)
	copyElements(out, p.data[req.Start:req.Start+count*stride], size, stride)
	return out, nil
}

// copyElements fills out from src, where element i starts at i*stride.
func copyElements[T Element](out []T, src []byte, size, stride int) {
	if !hostLittleEndian {
		for i := range out {
			off := i * stride
			_, _ = binary.Decode(src[off:off+size], binary.LittleEndian, &out[i])
		}
		return
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*size)
	if stride == size {
		copy(dst, src)
		return
	}
	for i := range out {
		off := i * stride
		copy(dst[i*size:(i+1)*size], src[off:off+size])
	}
}
