// Package jwt issues and verifies the HS512 session tokens that identify the
// signed-in user, and carries the verified claims through a request context.
package jwt
