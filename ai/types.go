// Package ai drives an enemy through Idle, Alert and Aggressive states.
//
// Perception is push based: collaborators Post events into a per-actor inbox
// and the controller drains it once at the start of every Tick, so the
// machine sees stable signals for the whole update.
package ai

import "math"

// StateID identifies an AI state. Zero is reserved for "no state".
type StateID int

const (
	Idle StateID = iota + 1
	Alert
	Aggressive
)

func (s StateID) String() string {
	switch s {
	case Idle:
		return "idle"
	case Alert:
		return "alert"
	case Aggressive:
		return "aggressive"
	default:
		return "none"
	}
}

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// LengthSquared returns the squared length of v.
func (v Vec3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Distance returns the distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return math.Sqrt(v.Sub(o).LengthSquared())
}

// Target is anything the enemy can chase and attack.
type Target interface {
	Position() Vec3
	Alive() bool
}

// Body is the controlled character.
type Body interface {
	Position() Vec3
	IsAttacking() bool
	FaceTowards(position Vec3)
	Attack(target Target)
}

// Navigator moves the body. Path finding lives behind it.
type Navigator interface {
	MoveTo(position Vec3)
	Stop()
}
