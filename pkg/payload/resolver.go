package payload

import (
	"fmt"

	"github.com/qmuntal/gltf"
)

// ResolveBufferView reads elements of type T from bufferView view of doc.
// Reading starts extraOffset bytes into the view. A zero overrideCount reads
// every whole stride of the view's byteLength. The buffer table used depends
// only on the store mode. The returned path is the file the bytes came from.
func ResolveBufferView[T Element](s *Store, doc *gltf.Document, view, extraOffset, overrideCount int) ([]T, string, error) {
	if s == nil || doc == nil {
		return nil, "", fmt.Errorf("%w: nil store or document", ErrMissingReference)
	}
	if view < 0 || view >= len(doc.BufferViews) || doc.BufferViews[view] == nil {
		return nil, "", fmt.Errorf("%w: bufferView %d", ErrMissingReference, view)
	}

	bv := doc.BufferViews[view]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, "", fmt.Errorf("%w: bufferView %d references buffer %d", ErrMissingReference, view, bv.Buffer)
	}

	count := overrideCount
	if count == 0 {
		stride := bv.ByteStride
		if stride == 0 {
			stride = SizeOf[T]()
		}
		if stride <= 0 || bv.ByteLength/stride <= 0 {
			return nil, "", fmt.Errorf("%w: bufferView %d holds no whole element", ErrOutOfBounds, view)
		}
		count = bv.ByteLength / stride
	}

	p, ok := s.Lookup(s.mode.bufferOrigin(), uint32(bv.Buffer))
	if !ok {
		return nil, "", fmt.Errorf("%w: buffer %d is not cached as %s", ErrMissingReference, bv.Buffer, s.mode.bufferOrigin())
	}

	out, err := Read[T](p, ReadRequest{
		Start:  bv.ByteOffset + extraOffset,
		Count:  count,
		Stride: bv.ByteStride,
	})
	if err != nil {
		return nil, "", fmt.Errorf("bufferView %d: %w", view, err)
	}
	return out, p.Path(), nil
}

// ResolveImage returns the raw bytes of image, either from its cached
// external file or from its bufferView.
func ResolveImage[T Element](s *Store, doc *gltf.Document, image int) ([]T, string, error) {
	if s == nil || doc == nil {
		return nil, "", fmt.Errorf("%w: nil store or document", ErrMissingReference)
	}
	if image < 0 || image >= len(doc.Images) || doc.Images[image] == nil {
		return nil, "", fmt.Errorf("%w: image %d", ErrMissingReference, image)
	}

	img := doc.Images[image]
	switch {
	case img.URI != "":
		p, ok := s.Lookup(OriginExternalImage, uint32(image))
		if !ok {
			return nil, "", fmt.Errorf("%w: image %d is not cached", ErrMissingReference, image)
		}
		out, err := Read[T](p, ReadRequest{})
		if err != nil {
			return nil, "", fmt.Errorf("image %d: %w", image, err)
		}
		return out, p.Path(), nil
	case img.BufferView != nil:
		return ResolveBufferView[T](s, doc, *img.BufferView, 0, 0)
	default:
		return nil, "", fmt.Errorf("%w: image %d has neither uri nor bufferView", ErrMissingReference, image)
	}
}

// ResolveAccessor reads the elements described by accessor: its bufferView,
// shifted by the accessor byteOffset, limited to the accessor count. Sparse
// accessors and accessors without a bufferView are rejected.
func ResolveAccessor[T Element](s *Store, doc *gltf.Document, accessor int) ([]T, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMissingReference)
	}
	if accessor < 0 || accessor >= len(doc.Accessors) || doc.Accessors[accessor] == nil {
		return nil, fmt.Errorf("%w: accessor %d", ErrMissingReference, accessor)
	}

	acc := doc.Accessors[accessor]
	if acc.Sparse != nil {
		return nil, fmt.Errorf("%w: accessor %d is sparse", ErrMalformed, accessor)
	}
	if acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor %d has no bufferView", ErrMissingReference, accessor)
	}
	if acc.Count <= 0 {
		return nil, fmt.Errorf("%w: accessor %d count %d", ErrMalformed, accessor, acc.Count)
	}

	out, _, err := ResolveBufferView[T](s, doc, *acc.BufferView, acc.ByteOffset, acc.Count)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", accessor, err)
	}
	return out, nil
}
