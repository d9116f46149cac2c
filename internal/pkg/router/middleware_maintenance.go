package router

import (
	"net/http"

	"github.com/shandysiswandi/apex/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed under
// app.maintenance.endpoints, e.g. "POST /api/v1/security/mfa/setup" or a bare
// path for every method.
func middlewareMaintenance(cfg config.Config) Middleware {
	blocked := make(map[string]struct{})
	if cfg != nil {
		for _, e := range cfg.GetArray("app.maintenance.endpoints") {
			blocked[e] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			_, byPath := blocked[route]
			_, byMethod := blocked[r.Method+" "+route]
			if byPath || byMethod {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
