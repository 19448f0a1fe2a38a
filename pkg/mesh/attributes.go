package mesh

import "github.com/Faultbox/gltfimport/pkg/math"

// MaxTexcoordSets is the number of TEXCOORD_n sets an AttributeSet can hold.
const MaxTexcoordSets = 8

// Attribute semantics read from a primitive.
const (
	AttributePosition = "POSITION"
	AttributeNormal   = "NORMAL"
	AttributeTangent  = "TANGENT"
)

// AttributeSet holds the engine-ready arrays of one mesh primitive, already
// converted to the destination axis convention. Optional attributes are nil
// when the primitive does not define them or they could not be extracted.
//
// Reads require start+count*stride to fit in the buffer. An interleaved
// attribute at a non-zero accessor offset in a view that ends exactly at the
// buffer end misses its trailing padding and fails with
// payload.ErrOutOfBounds; optional attributes in that layout end up in
// Skipped.
type AttributeSet struct {
	Indices   []uint32    // Triangle list, three entries per triangle
	Positions []math.Vec3 // Required
	Normals   []math.Vec3
	Tangents  []math.Vec4 // W is the bitangent sign
	Texcoords [MaxTexcoordSets][]math.Vec2

	// Skipped maps optional attribute semantics that were present on the
	// primitive but failed to extract to the reason.
	Skipped map[string]error
}

// VertexCount returns the number of vertices.
func (a *AttributeSet) VertexCount() int {
	return len(a.Positions)
}

// TriangleCount returns the number of triangles.
func (a *AttributeSet) TriangleCount() int {
	return len(a.Indices) / 3
}

// TexcoordSets returns how many UV sets are populated.
func (a *AttributeSet) TexcoordSets() int {
	n := 0
	for _, uv := range a.Texcoords {
		if len(uv) > 0 {
			n++
		}
	}
	return n
}

// Bounds returns the axis-aligned bounding box of the positions.
func (a *AttributeSet) Bounds() (math.Vec3, math.Vec3) {
	return math.Bounds(a.Positions)
}

func (a *AttributeSet) skip(semantic string, err error) {
	if a.Skipped == nil {
		a.Skipped = make(map[string]error)
	}
	a.Skipped[semantic] = err
}
