// Package otp implements the time-based one-time password engine (RFC 6238)
// used for two-step verification.
//
// The engine is a set of pure functions: it provisions Base32 shared secrets,
// derives HMAC-SHA1 codes from a secret and a point in time, and verifies
// user-submitted codes against a small window of adjacent time steps. It never
// logs, performs no I/O besides reading the system CSPRNG, and holds no
// package-level mutable state, so every function is safe for concurrent use.
//
// Parameters travel in an explicit Config value so several configurations can
// coexist in one process. The defaults (30 second step, 6 digits, SHA-1) are
// the interoperability contract with authenticator apps.
package otp
