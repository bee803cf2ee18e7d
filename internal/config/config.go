// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes gateway settings such
// as server timeouts, logging, the upstream API, idempotency and cache
// lifetimes, rate limiting, and observability.
package config

import (
	"errors"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "agritrade-gateway")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]

	Sampler     string            // OTEL_TRACES_SAMPLER: always_on, always_off, traceidratio, parentbased_traceidratio
	Headers     map[string]string // OTEL_EXPORTER_OTLP_HEADERS ("k=v,k2=v2"), e.g. collector auth
	Timeout     time.Duration     // OTEL_EXPORTER_OTLP_TIMEOUT per export batch
	Environment string            // DEPLOY_ENV, reported as deployment.environment
}

// Trace samplers accepted in OTEL_TRACES_SAMPLER.
var traceSamplers = []string{"always_on", "always_off", "traceidratio", "parentbased_traceidratio"}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Upstream accounting API
	UpstreamURL     string        // base URL, e.g. http://backend:8000/api
	UpstreamTimeout time.Duration // per-call timeout
	PingTimeout     time.Duration // readiness check timeout
	WeatherURL      string        // weather provider endpoint; empty disables lookups

	// Gateway state
	DBPath       string        // SQLite path (completed tokens, audit log)
	TokenStore   string        // sqlite|bolt|memory
	BoltPath     string        // bolt file when TokenStore=bolt
	BodyLimit    int64         // max request body bytes
	CacheTTL     time.Duration // query cache freshness
	ReferenceTTL time.Duration // reference data freshness
	GuardIdleTTL time.Duration // idle guard eviction

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a completed token stays consumed

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Upstream
		UpstreamURL:     strings.TrimRight(getenv("UPSTREAM_URL", "http://localhost:8000/api"), "/"),
		UpstreamTimeout: getdur("UPSTREAM_TIMEOUT", 10*time.Second),
		PingTimeout:     getdur("UPSTREAM_PING_TIMEOUT", 2*time.Second),
		WeatherURL:      getenvAllowEmpty("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),

		// Gateway state
		DBPath:       getenv("DB_PATH", "gateway.db"),
		TokenStore:   strings.ToLower(getenv("TOKEN_STORE", "sqlite")),
		BoltPath:     getenv("BOLT_PATH", "tokens.bolt"),
		BodyLimit:    int64(getint("BODY_LIMIT", 1<<20)),
		CacheTTL:     getdur("CACHE_TTL", 30*time.Second),
		ReferenceTTL: getdur("REFERENCE_TTL", 5*time.Minute),
		GuardIdleTTL: getdur("GUARD_IDLE_TTL", 30*time.Minute),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "agritrade-gateway"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
			Sampler:     strings.ToLower(getenv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio")),
			Headers:     splitKV(getenv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Timeout:     getdur("OTEL_EXPORTER_OTLP_TIMEOUT", 10*time.Second),
			Environment: getenv("DEPLOY_ENV", "development"),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if u, err := url.Parse(cfg.UpstreamURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, errors.New("UPSTREAM_URL must be an absolute http(s) URL")
	}
	if cfg.UpstreamTimeout <= 0 || cfg.PingTimeout <= 0 {
		return cfg, errors.New("UPSTREAM_TIMEOUT and UPSTREAM_PING_TIMEOUT must be > 0")
	}
	switch cfg.TokenStore {
	case "sqlite", "memory":
	case "bolt":
		if strings.TrimSpace(cfg.BoltPath) == "" {
			return cfg, errors.New("BOLT_PATH must not be empty when TOKEN_STORE=bolt")
		}
	default:
		return cfg, errors.New("TOKEN_STORE must be one of: sqlite, bolt, memory")
	}
	if cfg.BodyLimit <= 0 {
		return cfg, errors.New("BODY_LIMIT must be > 0")
	}
	if cfg.CacheTTL < 0 || cfg.ReferenceTTL < 0 {
		return cfg, errors.New("CACHE_TTL and REFERENCE_TTL must be >= 0")
	}
	if cfg.GuardIdleTTL <= 0 {
		return cfg, errors.New("GUARD_IDLE_TTL must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if !slices.Contains(traceSamplers, cfg.OTEL.Sampler) {
		return cfg, errors.New("OTEL_TRACES_SAMPLER must be one of: " + strings.Join(traceSamplers, ", "))
	}
	if cfg.OTEL.Timeout <= 0 {
		return cfg, errors.New("OTEL_EXPORTER_OTLP_TIMEOUT must be > 0")
	}
	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// getenvAllowEmpty is getenv where an explicitly empty value is kept, so a
// feature can be switched off with VAR="".
func getenvAllowEmpty(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitKV parses "k=v,k2=v2" pairs; entries without '=' or with an empty key
// are skipped.
func splitKV(s string) map[string]string {
	out := map[string]string{}
	for _, p := range splitCSV(s) {
		k, v, ok := strings.Cut(p, "=")
		if k = strings.TrimSpace(k); ok && k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
