// Package clock provides the time source used by the use cases.
//
// TOTP verification and trusted-device expiry both depend on "now", so use
// cases take a Clocker instead of calling time.Now directly. Tests pass a
// FixedClocker to pin a step boundary.
package clock
