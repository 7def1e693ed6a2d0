// Package model defines the world-facing types used throughout envquery.
//
// # Geometry
//
//   - Vector: 3D float32 location or direction
//   - Rotator: pitch/yaw/roll in degrees
//   - Pose: location plus rotation
//
// # World
//
//   - ActorID: stable identity of a world object
//   - Actor: read access to an object's transform and class
//   - World: lookup of actors by ID; a missing actor has been destroyed
//
// SimpleWorld is a concurrency-safe in-memory World for tools and tests.
package model
