// internal/humanoid/vector.go
package humanoid

import "math"

// Vector2D represents a point or displacement in page coordinates. It is used
// throughout the interaction simulation for cursor positions and curve
// control points.
type Vector2D struct {
	// X is the horizontal component of the vector.
	X float64
	// Y is the vertical component of the vector.
	Y float64
}

// Add performs vector addition, returning a new Vector2D `v + other`.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub performs vector subtraction, returning a new Vector2D `v - other`.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul performs scalar multiplication, returning a new Vector2D `v * scalar`.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{X: v.X * scalar, Y: v.Y * scalar}
}

// Mag calculates the magnitude (Euclidean length) of the vector, `|v|`.
func (v Vector2D) Mag() float64 {
	// math.Hypot stays stable for very large or small components.
	return math.Hypot(v.X, v.Y)
}

// Dist calculates the Euclidean distance between the points represented by
// `v` and `other`.
func (v Vector2D) Dist(other Vector2D) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// Midpoint returns the point halfway between `v` and `other`.
func (v Vector2D) Midpoint(other Vector2D) Vector2D {
	return Vector2D{X: (v.X + other.X) / 2, Y: (v.Y + other.Y) / 2}
}

// Clamp constrains both components into the rectangle [0,0]..(maxX,maxY).
func (v Vector2D) Clamp(maxX, maxY float64) Vector2D {
	return Vector2D{
		X: math.Max(0, math.Min(v.X, maxX)),
		Y: math.Max(0, math.Min(v.Y, maxY)),
	}
}
