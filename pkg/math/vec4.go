package math

// Vec4 is a 4D vector. For tangents, XYZ is the direction and W the
// bitangent handedness (+1 or -1).
type Vec4 struct {
	X, Y, Z, W float32
}

// XYZ returns the first three components.
func (v Vec4) XYZ() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// SwapYZ swaps the Y and Z components and leaves W untouched.
func (v Vec4) SwapYZ() Vec4 {
	return Vec4{v.X, v.Z, v.Y, v.W}
}

// SwapYZAll4 applies SwapYZ to every element in place.
func SwapYZAll4(vs []Vec4) {
	for i := range vs {
		vs[i].Y, vs[i].Z = vs[i].Z, vs[i].Y
	}
}
