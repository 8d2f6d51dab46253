// Package sanitizer provides input normalization for registration data.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions never reject input: anything that cannot be
// normalized is returned trimmed, and validation decides whether it is acceptable.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Phone numbers: Convert to E.164 format (+[country][number]) when parseable
//   - Codes: Uppercase, strip inner whitespace - "ga 402" becomes "GA402"
package sanitizer
