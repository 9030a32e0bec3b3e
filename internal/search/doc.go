// Package search defines the lookup algorithm interface and implements the
// interchangeable exact-match algorithms:
//
//   - Linear: scans the dataset in file order and stops at the first match
//   - Binary: sorts a copy and binary-searches it
//   - Jump: sorts a copy, jumps by sqrt(n) blocks, then scans the bracket
//   - Exponential: sorts a copy, doubles a bound, then binary-searches the range
//   - Set: builds a hash set; also answers "is any of these present"
//
// All algorithms compare trimmed text for equality (never substrings) and must
// agree on every input, so they can be swapped by configuration.
package search
