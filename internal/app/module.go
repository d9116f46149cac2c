package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/apex/internal/security"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.security.enabled") {
		if err := security.New(security.Dependency{
			Ctx:          a.ctx,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Goroutine:    a.goroutine,
			Router:       a.router,
			Idempotency:  a.idemp,
			Messaging:    a.messaging,
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			UUID:         a.uuid,
			HMAC:         a.hmac,
			MFAEncryptor: a.mfaEncryptor,
			Clock:        a.clock,
			Totp:         a.totp,
			Validator:    a.validator,
		}); err != nil {
			slog.Error("failed to init module security", "error", err)
			os.Exit(1)
		}
	}
}
