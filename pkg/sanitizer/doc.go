// Package sanitizer normalizes user input before it is validated and stored.
//
// All functions are idempotent: applying them twice gives the same result
// as applying them once. Invalid input is never rejected here; validation
// happens afterwards.
//
// Normalization includes:
//   - Vehicle models: trim and collapse inner whitespace ("  Honda   City " becomes "Honda City")
//   - Vehicle numbers: upper-case, drop spaces, dashes and dots ("ka 01-ab 1234" becomes "KA01AB1234")
//   - Emails: trim and lower-case
//   - Names: trim and collapse inner whitespace
package sanitizer
