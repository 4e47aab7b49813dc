package config

import "time"

const (
	DefaultEnvFile = ".env"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "parkly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSessionTTL = 30 * time.Minute

	DefaultPricingEnabled = false
	DefaultHourlyRate     = 50

	DefaultAdminEnabled       = false
	DefaultAdminSignupEnabled = false
	DefaultAdminTokenTTL      = 12 * time.Hour
	DefaultMinPasswordLength  = 6

	DefaultEventsEnabled  = false
	DefaultEventsTopic    = "parking.slot-events"
	DefaultEventsDLQTopic = "parking.slot-events.dlq"

	// AES-256 keys are 32 bytes.
	AdminTokenKeyLength = 32
)

var DefaultCORSAllowedOrigins = []string{"*"}
