package inbound

import (
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/router"
)

const (
	defaultVerifyPerSecond = 1.0
	defaultVerifyBurst     = 5
)

func RegisterHTTPEndpoint(r *router.Router, cfg config.Config, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	perSecond, burst := defaultVerifyPerSecond, defaultVerifyBurst
	if cfg != nil {
		if v := cfg.GetFloat64("mfa.rate_limit.per_second"); v > 0 {
			perSecond = v
		}
		if v := cfg.GetInt("mfa.rate_limit.burst"); v > 0 {
			burst = v
		}
	}
	limit := router.NewRateLimiter(perSecond, burst).Middleware

	r.GET("/api/v1/security/mfa", end.MFAStatus)
	r.POST("/api/v1/security/mfa/setup", end.MFASetup, limit)
	r.POST("/api/v1/security/mfa/confirm", end.MFAConfirm, limit)
	r.POST("/api/v1/security/mfa/challenge", end.MFAChallenge, limit)
	r.GET("/api/v1/security/mfa/requirement", end.MFARequirement)
	r.POST("/api/v1/security/mfa/disable", end.MFADisable)

	r.GET("/api/v1/security/devices", end.TrustedDeviceList)
	r.DELETE("/api/v1/security/devices/:id", end.TrustedDeviceRemove)

	r.GET("/api/v1/security/events", end.AuditEventList)
}
