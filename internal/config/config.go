package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure reported by Load.
var ErrInvalid = errors.New("config: invalid configuration")

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// RoutingStrategy names one of the strategies the routing layer understands.
type RoutingStrategy string

const (
	LatencyOptimized RoutingStrategy = "latency_optimized"
	CostOptimized    RoutingStrategy = "cost_optimized"
	LoadBalanced     RoutingStrategy = "load_balanced"
	Failover         RoutingStrategy = "failover"
)

// Backend selects the document store implementation used by the state layer.
type Backend string

const (
	BackendFirestore Backend = "firestore"
	BackendMongo     Backend = "mongo"
	BackendMemory    Backend = "memory"
)

// Config is the resolved configuration snapshot for one process run.
// It is built once by Load and never mutated afterwards.
type Config struct {
	Environment Environment
	Backend     Backend
	Firebase    FirebaseConfig
	MongoDB     MongoConfig
	API         APIConfig
	Routing     RoutingConfig
	Logging     LoggingConfig
}

// FirebaseConfig holds the Firestore project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	DatabaseURL     string
}

// MongoConfig holds the MongoDB settings used when STORE_BACKEND=mongo.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// APIConfig holds the HTTP server settings.
type APIConfig struct {
	Host        string
	Port        int
	Workers     int
	Debug       bool
	CORSOrigins []string
}

// RoutingConfig carries the routing-layer thresholds. Nothing in this
// service acts on them; they are resolved here and handed to the routing
// layer as data.
type RoutingConfig struct {
	DefaultStrategy         RoutingStrategy
	HealthCheckInterval     time.Duration
	MaxRetries              int
	Timeout                 time.Duration
	CircuitBreakerThreshold int
	LatencyThreshold        time.Duration
	ErrorRateThreshold      float64
	SuccessRateThreshold    float64
}

// LoggingConfig holds log verbosity and encoding settings.
type LoggingConfig struct {
	Level      string
	Format     string
	Structured bool
}

// Load resolves configuration from environment variables (and an optional
// .env file) into a validated snapshot. Either the whole snapshot is valid
// or an error wrapping ErrInvalid is returned; no partial result escapes.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.AllowEmptyEnv(true)
	setDefaults()

	cfg := &Config{
		Environment: Environment(strings.ToLower(viper.GetString("ENVIRONMENT"))),
		Backend:     Backend(strings.ToLower(viper.GetString("STORE_BACKEND"))),
		Firebase: FirebaseConfig{
			ProjectID:       viper.GetString("FIREBASE_PROJECT_ID"),
			CredentialsPath: viper.GetString("FIREBASE_CREDENTIALS_PATH"),
			DatabaseURL:     viper.GetString("FIREBASE_DATABASE_URL"),
		},
		MongoDB: MongoConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		API: APIConfig{
			Host:        viper.GetString("API_HOST"),
			Port:        viper.GetInt("API_PORT"),
			Workers:     viper.GetInt("API_WORKERS"),
			Debug:       viper.GetBool("API_DEBUG"),
			CORSOrigins: splitOrigins(viper.GetString("CORS_ORIGINS")),
		},
		Routing: RoutingConfig{
			DefaultStrategy:         RoutingStrategy(viper.GetString("DEFAULT_ROUTING_STRATEGY")),
			HealthCheckInterval:     time.Duration(viper.GetInt("HEALTH_CHECK_INTERVAL")) * time.Second,
			MaxRetries:              viper.GetInt("MAX_RETRIES"),
			Timeout:                 time.Duration(viper.GetInt("TIMEOUT_SECONDS")) * time.Second,
			CircuitBreakerThreshold: viper.GetInt("CIRCUIT_BREAKER_THRESHOLD"),
			LatencyThreshold:        time.Duration(viper.GetInt("LATENCY_THRESHOLD_MS")) * time.Millisecond,
			ErrorRateThreshold:      viper.GetFloat64("ERROR_RATE_THRESHOLD"),
			SuccessRateThreshold:    viper.GetFloat64("SUCCESS_RATE_THRESHOLD"),
		},
		Logging: LoggingConfig{
			Level:      viper.GetString("LOG_LEVEL"),
			Format:     viper.GetString("LOG_FORMAT"),
			Structured: viper.GetBool("ENABLE_STRUCTURED_LOGGING"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("STORE_BACKEND", "firestore")
	viper.SetDefault("FIREBASE_PROJECT_ID", "api-routing-engine")
	viper.SetDefault("FIREBASE_CREDENTIALS_PATH", "./service-account-key.json")
	viper.SetDefault("FIREBASE_DATABASE_URL", "")
	viper.SetDefault("MONGODB_URI", "")
	viper.SetDefault("MONGODB_DATABASE", "routing_engine")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("API_HOST", "0.0.0.0")
	viper.SetDefault("API_PORT", 8000)
	viper.SetDefault("API_WORKERS", 4)
	viper.SetDefault("API_DEBUG", false)
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DEFAULT_ROUTING_STRATEGY", "latency_optimized")
	viper.SetDefault("HEALTH_CHECK_INTERVAL", 30)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("TIMEOUT_SECONDS", 30)
	viper.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)
	viper.SetDefault("LATENCY_THRESHOLD_MS", 1000)
	viper.SetDefault("ERROR_RATE_THRESHOLD", 0.1)
	viper.SetDefault("SUCCESS_RATE_THRESHOLD", 0.95)
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("ENABLE_STRUCTURED_LOGGING", true)
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("%w: unknown ENVIRONMENT %q", ErrInvalid, c.Environment)
	}

	switch c.Backend {
	case BackendFirestore, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalid, c.Backend)
	}

	if c.Firebase.ProjectID == "" {
		return fmt.Errorf("%w: FIREBASE_PROJECT_ID is required", ErrInvalid)
	}

	switch c.Routing.DefaultStrategy {
	case LatencyOptimized, CostOptimized, LoadBalanced, Failover:
	default:
		return fmt.Errorf("%w: unknown DEFAULT_ROUTING_STRATEGY %q", ErrInvalid, c.Routing.DefaultStrategy)
	}

	if c.Environment == Production {
		if c.API.Debug {
			return fmt.Errorf("%w: debug mode cannot be enabled in production", ErrInvalid)
		}
		for _, o := range c.API.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("%w: wildcard CORS origins not allowed in production", ErrInvalid)
			}
		}
	}

	return nil
}
