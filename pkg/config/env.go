package config

const (
	EnvEnvFile = "ENV_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSessionTTL = "SESSION_TTL"

	EnvPricingEnabled = "PRICING_ENABLED"
	EnvHourlyRate     = "HOURLY_RATE"

	EnvAdminEnabled       = "ADMIN_ENABLED"
	EnvAdminSignupEnabled = "ADMIN_SIGNUP_ENABLED"
	EnvAdminTokenKey      = "ADMIN_TOKEN_KEY"
	EnvAdminTokenTTL      = "ADMIN_TOKEN_TTL"
	EnvMinPasswordLength  = "MIN_PASSWORD_LENGTH"

	EnvEventsEnabled  = "EVENTS_ENABLED"
	EnvEventsTopic    = "EVENTS_TOPIC"
	EnvEventsDLQTopic = "EVENTS_DLQ_TOPIC"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"
)
