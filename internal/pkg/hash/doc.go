// Package hash provides keyed hashing for values that must be looked up but
// never stored in the clear, such as device identifiers taken from cookies.
package hash
