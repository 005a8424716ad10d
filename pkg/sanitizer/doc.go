// Package sanitizer provides input normalization for booking lookups.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Invalid input yields an empty string rather than an error, so
// the caller's validation layer reports it as a missing required field.
//
// Normalization includes:
//   - Phone numbers: Convert to E.164 format (+[country][number])
//   - Names: Collapse whitespace, trim leading/trailing spaces
package sanitizer
