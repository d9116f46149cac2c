package router

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/shandysiswandi/apex/internal/pkg/device"
)

// HeaderDeviceID is read when the device cookie is absent, for non-browser clients.
const HeaderDeviceID = "X-Device-ID"

const maxDeviceIDLen = 128

func sanitizeDeviceID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > maxDeviceIDLen {
		return ""
	}
	if strings.IndexFunc(v, unicode.IsControl) >= 0 {
		return ""
	}

	return v
}

// middlewareDevice exposes the caller's device identity via device.FromContext.
func middlewareDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(device.CookieName); err == nil {
			id = sanitizeDeviceID(c.Value)
		}
		if id == "" {
			id = sanitizeDeviceID(r.Header.Get(HeaderDeviceID))
		}

		ctx := device.WithInfo(r.Context(), device.Info{
			ID:        id,
			UserAgent: r.UserAgent(),
			IP:        r.RemoteAddr,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
