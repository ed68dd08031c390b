package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		JWT:       JWTConfig{},
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Identity:  DefaultIdentityConfig(),
		Metering:  DefaultMeteringConfig(),
		CallLog:   DefaultCallLogConfig(),
		Gateway:   GatewayConfig{},
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8085,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultDatabaseConfig returns the default database configuration.
// SQLite keeps single-node deployments dependency-free.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "orchestrator.db",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultRedisConfig returns the default entitlement cache configuration.
// Addr is empty by default: caching off, every check hits identity.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL: 30 * time.Second,
	}
}

// DefaultIdentityConfig returns the default identity service configuration.
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		BaseURL: "http://gateway:8080",
		Timeout: 20 * time.Second,
	}
}

// DefaultMeteringConfig returns the default metering emitter configuration.
func DefaultMeteringConfig() MeteringConfig {
	return MeteringConfig{
		CollectorURL: "http://billing-service:8083/meter",
		Timeout:      10 * time.Second,
		QueueSize:    1024,
		MaxRetries:   2,
		RetryBackoff: 250 * time.Millisecond,
	}
}

// DefaultCallLogConfig returns the default call-log store configuration.
func DefaultCallLogConfig() CallLogConfig {
	return CallLogConfig{
		Backend:         "identity",
		URL:             "http://gateway:8080/calls",
		Timeout:         10 * time.Second,
		MongoDatabase:   "orchestrator",
		MongoCollection: "call_logs",
	}
}

// DefaultLogConfig returns the default log configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "orchestrator",
		SampleRate:   1.0,
	}
}
