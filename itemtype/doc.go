// Package itemtype defines the item type descriptors used to read query item
// payloads.
//
// A generator writes fixed-size payloads into the item store; the descriptor
// of the option's item type is the only thing that knows how to decode them.
// Descriptors form a closed set:
//
//   - Point: a location (12 bytes)
//   - Direction: a unit direction, read as a rotation (12 bytes)
//   - Actor: an actor reference (8 bytes), resolved through the world
//
// Every descriptor declares what it can produce through Capabilities. Use the
// package-level Location, Rotation and ResolveActor helpers, which check the
// capability first and report ok=false instead of returning zero values.
package itemtype
