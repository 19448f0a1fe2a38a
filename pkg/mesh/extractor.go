// Package mesh extracts per-primitive vertex attributes and triangle indices
// from a glTF document backed by a frozen payload store.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/gltfimport/pkg/math"
	"github.com/Faultbox/gltfimport/pkg/payload"
	"github.com/qmuntal/gltf"
)

// Mesh extraction errors.
var (
	ErrMissingPositions = errors.New("primitive has no POSITION attribute")
	ErrAccessorType     = errors.New("unexpected accessor type")
	ErrCountMismatch    = errors.New("attribute count does not match vertex count")
	ErrIndexOutOfRange  = errors.New("index out of vertex range")
	ErrNotTriangleList  = errors.New("index count is not a multiple of 3")
	ErrUnsupportedMode  = errors.New("unsupported primitive mode")
)

// Extractor reads primitives out of a frozen store. It holds no mutable
// state and may be shared between goroutines.
type Extractor struct {
	store *payload.Store

	// RequiredOnly skips normals, tangents and texture coordinates without
	// reading them. Set it before sharing the extractor.
	RequiredOnly bool
}

// NewExtractor creates an extractor reading from s.
func NewExtractor(s *payload.Store) *Extractor {
	return &Extractor{store: s}
}

// Extract returns the attribute set of prim. Positions and indices are
// required and any failure reading them fails the primitive. Normals,
// tangents and texture coordinates are optional: failures leave the
// attribute empty and are recorded in AttributeSet.Skipped.
func (e *Extractor) Extract(doc *gltf.Document, prim *gltf.Primitive) (*AttributeSet, error) {
	if doc == nil || prim == nil {
		return nil, fmt.Errorf("%w: nil document or primitive", payload.ErrMissingReference)
	}
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: %v (only triangles supported)", ErrUnsupportedMode, prim.Mode)
	}

	positions, err := e.extractPositions(doc, prim)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	indices, err := e.extractIndices(doc, prim, len(positions))
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}

	set := &AttributeSet{
		Indices:   indices,
		Positions: positions,
	}
	if e.RequiredOnly {
		return set, nil
	}
	n := len(positions)

	if idx, ok := prim.Attributes[AttributeNormal]; ok {
		normals, err := e.readVec3(doc, idx, n)
		if err != nil {
			set.skip(AttributeNormal, err)
		} else {
			math.SwapYZAll(normals)
			set.Normals = normals
		}
	}

	if idx, ok := prim.Attributes[AttributeTangent]; ok {
		tangents, err := readAttribute[math.Vec4](e.store, doc, idx, gltf.AccessorVec4, n)
		if err != nil {
			set.skip(AttributeTangent, err)
		} else {
			math.SwapYZAll4(tangents)
			set.Tangents = tangents
		}
	}

	for i := range MaxTexcoordSets {
		semantic := fmt.Sprintf("TEXCOORD_%d", i)
		idx, ok := prim.Attributes[semantic]
		if !ok {
			continue
		}
		uv, err := e.readTexcoords(doc, idx, n)
		if err != nil {
			set.skip(semantic, err)
			continue
		}
		set.Texcoords[i] = uv
	}

	return set, nil
}

// extractPositions reads POSITION and converts it to the destination axes.
func (e *Extractor) extractPositions(doc *gltf.Document, prim *gltf.Primitive) ([]math.Vec3, error) {
	idx, ok := prim.Attributes[AttributePosition]
	if !ok {
		return nil, ErrMissingPositions
	}
	positions, err := e.readVec3(doc, idx, 0)
	if err != nil {
		return nil, err
	}
	math.SwapYZAll(positions)
	return positions, nil
}

// extractIndices reads the index accessor widened to uint32 and checks it
// forms a triangle list over vertexCount vertices. A primitive without
// indices draws its vertices in order.
func (e *Extractor) extractIndices(doc *gltf.Document, prim *gltf.Primitive, vertexCount int) ([]uint32, error) {
	if prim.Indices == nil {
		if vertexCount%3 != 0 {
			return nil, fmt.Errorf("%w: %d unindexed vertices", ErrNotTriangleList, vertexCount)
		}
		seq := make([]uint32, vertexCount)
		for i := range seq {
			seq[i] = uint32(i)
		}
		return seq, nil
	}

	accessor := *prim.Indices
	acc, err := lookupAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: index accessor %d is not SCALAR", ErrAccessorType, accessor)
	}

	var indices []uint32
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		indices, err = widen[uint8](e.store, doc, accessor)
	case gltf.ComponentUshort:
		indices, err = widen[uint16](e.store, doc, accessor)
	case gltf.ComponentUint:
		indices, err = payload.ResolveAccessor[uint32](e.store, doc, accessor)
	default:
		return nil, fmt.Errorf("%w: index accessor %d has component type %v", ErrAccessorType, accessor, acc.ComponentType)
	}
	if err != nil {
		return nil, err
	}

	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", ErrNotTriangleList, len(indices))
	}
	for i, v := range indices {
		if int(v) >= vertexCount {
			return nil, fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, v, vertexCount)
		}
	}
	return indices, nil
}

// readVec3 reads a VEC3 FLOAT accessor. A non-zero count must match.
func (e *Extractor) readVec3(doc *gltf.Document, accessor, count int) ([]math.Vec3, error) {
	return readAttribute[math.Vec3](e.store, doc, accessor, gltf.AccessorVec3, count)
}

// readTexcoords reads a VEC2 accessor of floats or normalized unsigned
// bytes/shorts as float UVs.
func (e *Extractor) readTexcoords(doc *gltf.Document, accessor, count int) ([]math.Vec2, error) {
	acc, err := lookupAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("%w: texcoord accessor %d is not VEC2", ErrAccessorType, accessor)
	}

	switch {
	case acc.ComponentType == gltf.ComponentFloat:
		return readAttribute[math.Vec2](e.store, doc, accessor, gltf.AccessorVec2, count)
	case acc.ComponentType == gltf.ComponentUbyte && acc.Normalized:
		raw, err := readCounted[[2]uint8](e.store, doc, accessor, count)
		if err != nil {
			return nil, err
		}
		uv := make([]math.Vec2, len(raw))
		for i, v := range raw {
			uv[i] = math.Vec2{X: float32(v[0]) / 255.0, Y: float32(v[1]) / 255.0}
		}
		return uv, nil
	case acc.ComponentType == gltf.ComponentUshort && acc.Normalized:
		raw, err := readCounted[[2]uint16](e.store, doc, accessor, count)
		if err != nil {
			return nil, err
		}
		uv := make([]math.Vec2, len(raw))
		for i, v := range raw {
			uv[i] = math.Vec2{X: float32(v[0]) / 65535.0, Y: float32(v[1]) / 65535.0}
		}
		return uv, nil
	default:
		return nil, fmt.Errorf("%w: texcoord accessor %d has component type %v (normalized=%t)",
			ErrAccessorType, accessor, acc.ComponentType, acc.Normalized)
	}
}

// readAttribute reads a FLOAT accessor of the given type.
func readAttribute[T payload.Element](s *payload.Store, doc *gltf.Document, accessor int, typ gltf.AccessorType, count int) ([]T, error) {
	acc, err := lookupAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	if acc.Type != typ || acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("%w: accessor %d is %v/%v", ErrAccessorType, accessor, acc.Type, acc.ComponentType)
	}
	return readCounted[T](s, doc, accessor, count)
}

// readCounted reads an accessor and, when count is non-zero, requires it to
// hold exactly count elements.
func readCounted[T payload.Element](s *payload.Store, doc *gltf.Document, accessor, count int) ([]T, error) {
	out, err := payload.ResolveAccessor[T](s, doc, accessor)
	if err != nil {
		return nil, err
	}
	if count != 0 && len(out) != count {
		return nil, fmt.Errorf("%w: accessor %d has %d elements for %d vertices", ErrCountMismatch, accessor, len(out), count)
	}
	return out, nil
}

// widen reads a narrow index accessor and converts it to uint32.
func widen[T uint8 | uint16](s *payload.Store, doc *gltf.Document, accessor int) ([]uint32, error) {
	raw, err := payload.ResolveAccessor[T](s, doc, accessor)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(raw))
	for i, v := range raw {
		out[i] = uint32(v)
	}
	return out, nil
}

func lookupAccessor(doc *gltf.Document, accessor int) (*gltf.Accessor, error) {
	if accessor < 0 || accessor >= len(doc.Accessors) || doc.Accessors[accessor] == nil {
		return nil, fmt.Errorf("%w: accessor %d", payload.ErrMissingReference, accessor)
	}
	return doc.Accessors[accessor], nil
}
