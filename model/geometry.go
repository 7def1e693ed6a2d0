package model

import (
	"fmt"
	"math"
)

// Vector is a 3D float32 vector.
type Vector struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vector) Scale(s float32) Vector {
	return Vector{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// SizeSquared returns the squared length of v.
func (v Vector) SizeSquared() float32 {
	return v.Dot(v)
}

// Size returns the length of v.
func (v Vector) Size() float32 {
	return float32(math.Sqrt(float64(v.SizeSquared())))
}

// Size2D returns the length of v projected on the XY plane.
func (v Vector) Size2D() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns v scaled to unit length, or the zero vector.
func (v Vector) Normalize() Vector {
	size := v.Size()
	if size == 0 {
		return Vector{}
	}
	return v.Scale(1 / size)
}

// Rotation returns the rotator pointing along v. Roll is always zero.
func (v Vector) Rotation() Rotator {
	yaw := math.Atan2(float64(v.Y), float64(v.X))
	pitch := math.Atan2(float64(v.Z), math.Sqrt(float64(v.X*v.X+v.Y*v.Y)))
	return Rotator{
		Pitch: float32(pitch * 180 / math.Pi),
		Yaw:   float32(yaw * 180 / math.Pi),
	}
}

// String returns a string representation of v.
func (v Vector) String() string {
	return fmt.Sprintf("X=%.2f Y=%.2f Z=%.2f", v.X, v.Y, v.Z)
}

// Distance returns the distance between a and b.
func Distance(a, b Vector) float32 {
	return b.Sub(a).Size()
}

// Distance2D returns the distance between a and b on the XY plane.
func Distance2D(a, b Vector) float32 {
	return b.Sub(a).Size2D()
}

// Rotator is an orientation in degrees.
type Rotator struct {
	Pitch, Yaw, Roll float32
}

// Vector returns the unit forward direction of r.
func (r Rotator) Vector() Vector {
	p := float64(r.Pitch) * math.Pi / 180
	y := float64(r.Yaw) * math.Pi / 180
	cp := math.Cos(p)
	return Vector{
		X: float32(cp * math.Cos(y)),
		Y: float32(cp * math.Sin(y)),
		Z: float32(math.Sin(p)),
	}
}

// String returns a string representation of r.
func (r Rotator) String() string {
	return fmt.Sprintf("P=%.2f Y=%.2f R=%.2f", r.Pitch, r.Yaw, r.Roll)
}

// Pose is a location with a rotation.
type Pose struct {
	Location Vector
	Rotation Rotator
}
