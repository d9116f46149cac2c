package app

import (
	"context"
	"crypto/tls"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/shandysiswandi/apex/internal/pkg/clock"
	"github.com/shandysiswandi/apex/internal/pkg/config"
	"github.com/shandysiswandi/apex/internal/pkg/goroutine"
	"github.com/shandysiswandi/apex/internal/pkg/hash"
	"github.com/shandysiswandi/apex/internal/pkg/idempotency"
	"github.com/shandysiswandi/apex/internal/pkg/instrument"
	"github.com/shandysiswandi/apex/internal/pkg/jwt"
	"github.com/shandysiswandi/apex/internal/pkg/messaging"
	"github.com/shandysiswandi/apex/internal/pkg/mfa"
	"github.com/shandysiswandi/apex/internal/pkg/otp"
	"github.com/shandysiswandi/apex/internal/pkg/router"
	"github.com/shandysiswandi/apex/internal/pkg/uid"
	"github.com/shandysiswandi/apex/internal/pkg/validator"
	"github.com/shandysiswandi/apex/migrations"
)

func (a *App) initConfig() {
	// .env is optional and only used for local runs.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake(a.config.GetInt64("app.snowflake_node"))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow

	a.totp = otp.NewTOTP(otp.Config{
		Issuer:     a.config.GetString("mfa.totp.issuer"),
		Period:     a.config.GetUint("mfa.totp.period"),
		Digits:     a.config.GetInt("mfa.totp.digits"),
		Window:     a.config.GetInt("mfa.totp.window"),
		SecretSize: a.config.GetInt("mfa.totp.secret_size"),
	})

	rawKey := a.config.GetBinary("mfa.encryption_key")
	if len(rawKey) != 32 {
		slog.Error("failed to init mfa encryptor, mfa.encryption_key must be 32 base64 encoded bytes (AES-256)")
		os.Exit(1)
	}
	a.mfaEncryptor = mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: rawKey})
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

func (a *App) initDatabase() {
	dsn := a.config.GetString("database.url")

	if a.config.GetBool("database.auto_migrate") {
		if err := migrations.Up(dsn); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		slog.Info("database migrations applied")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(a.cacheConn, a.config.GetString("redis.idempotency_prefix"))
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	natsOptions := []nats.Option{
		nats.Name(a.config.GetString("messaging.nats.name")),
		nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
		nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
		nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
		nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
		nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
		nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
	}
	if a.config.GetBool("messaging.nats.no_echo") {
		natsOptions = append(natsOptions, nats.NoEcho())
	}

	dialer := &kafka.Dialer{
		ClientID:  a.config.GetString("messaging.kafka.client_id"),
		Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
		DualStack: true,
	}
	if user := strings.TrimSpace(a.config.GetString("messaging.kafka.sasl.username")); user != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: user,
			Password: a.config.GetString("messaging.kafka.sasl.password"),
		}
	}
	if a.config.GetBool("messaging.kafka.tls") {
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := messaging.NewFromDriver(driver, messaging.FactoryOptions{
		NATS: messaging.NATSConfig{
			URL:     a.config.GetString("messaging.nats.url"),
			Options: natsOptions,
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer:  dialer,
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	a.router.GET("/health", func(r *router.Request) (any, error) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "ok"}
		if err := a.dbConn.Ping(ctx); err != nil {
			status["database"] = "unavailable"
		}
		if err := a.cacheConn.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
		}

		return status, nil
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", router.HeaderDeviceID, router.HeaderCorrelationID},
		ExposedHeaders:   []string{router.HeaderCorrelationID},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}

}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
