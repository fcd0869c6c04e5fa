package geom

import "math"

// Vec3 is a position, velocity, or extent in course space. Y is up.
type Vec3 struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
	Z float64 `json:"z" yaml:"z" msgpack:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns the unit vector, or the zero vector for zero input.
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{}
	}
	return v.Scale(1 / length)
}

// ClampLength limits the vector's magnitude to max.
func (v Vec3) ClampLength(max float64) Vec3 {
	length := v.Length()
	if length <= max || length == 0 {
		return v
	}
	return v.Scale(max / length)
}

// Box is an axis-aligned volume described by its center and half extents.
type Box struct {
	Center      Vec3 `json:"center" yaml:"center" msgpack:"center"`
	HalfExtents Vec3 `json:"halfExtents" yaml:"half_extents" msgpack:"halfExtents"`
}

// Contains reports whether p lies inside the box (boundary inclusive).
func (b Box) Contains(p Vec3) bool {
	d := p.Sub(b.Center)
	return math.Abs(d.X) <= b.HalfExtents.X &&
		math.Abs(d.Y) <= b.HalfExtents.Y &&
		math.Abs(d.Z) <= b.HalfExtents.Z
}

// Degenerate reports whether any extent is non-positive.
func (b Box) Degenerate() bool {
	return b.HalfExtents.X <= 0 || b.HalfExtents.Y <= 0 || b.HalfExtents.Z <= 0
}

// Transform places an object in course space.
type Transform struct {
	Position Vec3 `json:"position" yaml:"position" msgpack:"position"`
	Rotation Vec3 `json:"rotation,omitempty" yaml:"rotation,omitempty" msgpack:"rotation,omitempty"`
	Scale    Vec3 `json:"scale,omitempty" yaml:"scale,omitempty" msgpack:"scale,omitempty"`
}
