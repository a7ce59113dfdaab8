// Package gpr drives file-level conversions between the GoPro GPR raw
// container, Adobe DNG and planar 16-bit RAW, and reads and rewrites the
// EXIF and GPR-specific metadata embedded in those containers.
//
// The wavelet codec itself is an external dependency installed with
// SetCodec (build with the gprsdk tag for the cgo binding to the GPR SDK).
// This package owns the cross-boundary protocol: every buffer is paired
// with the allocator that produced it and released exactly once on every
// exit path, and every failure is classified into a small structured error
// taxonomy the caller can dispatch on.
package gpr
