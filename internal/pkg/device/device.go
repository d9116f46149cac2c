// Package device carries the caller's browser identity through the request
// context. The identifier itself is created client-side and only read here.
package device

import "context"

// CookieName is the cookie holding the client-generated device identifier.
const CookieName = "apex_device"

// maxLabelLen bounds the stored device label.
const maxLabelLen = 80

// Info describes the device making the current request.
type Info struct {
	ID        string
	UserAgent string
	IP        string
}

// Label is the human-readable name shown in the trusted device list.
func (i Info) Label() string {
	if i.UserAgent == "" {
		return "This device"
	}

	runes := []rune(i.UserAgent)
	if len(runes) > maxLabelLen {
		return string(runes[:maxLabelLen])
	}

	return i.UserAgent
}

type infoKey struct{}

// WithInfo stores info in ctx.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoKey{}, info)
}

// FromContext returns the device stored by WithInfo. The zero Info is
// returned for requests without one.
func FromContext(ctx context.Context) Info {
	info, _ := ctx.Value(infoKey{}).(Info)
	return info
}
