// Package conv provides checked integer conversions.
//
// Arena offsets are stored as uint32 and payload strides as uint16, while
// slices are indexed with int. These helpers guard the narrowing direction.
package conv
