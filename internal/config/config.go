package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultEnvironment    = "local"
	defaultTemplatesDir   = "templates"
	defaultPublicDir      = "public"
	defaultCatalogPath    = "data/catalog.yaml"
	defaultAMQPExchange   = "storefront.events"
	defaultAMQPRoutingKey = "order.submitted.v1"
	defaultLogLevel       = "info"
	productionEnvironment = "prod"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	DevMode     bool
	LogLevel    string
	Server      ServerConfig
	Paths       PathsConfig
	Order       OrderConfig
	Events      EventsConfig
	Analytics   AnalyticsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PathsConfig lists on-disk inputs read at startup.
type PathsConfig struct {
	Templates string
	Public    string
	Catalog   string
}

// OrderConfig controls the outbound order link.
type OrderConfig struct {
	// Phone overrides the shop phone number from the catalog file when set.
	Phone string
}

// EventsConfig configures optional order notifications over AMQP.
type EventsConfig struct {
	AMQPURL    string
	Exchange   string
	RoutingKey string
}

// AnalyticsConfig holds client instrumentation surfaced to templates.
type AnalyticsConfig struct {
	GA4MeasurementID string
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (c Config) SecureCookies() bool {
	return c.Environment == productionEnvironment
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables and explicit maps.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Hosting platforms commonly inject PORT; the prefixed key wins when both are present.
	port := stringWithDefault(lookup, "PORT", defaultPort)
	port = stringWithDefault(lookup, "STOREFRONT_PORT", port)

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_ENV", defaultEnvironment)),
		DevMode:     boolWithDefault(lookup, "STOREFRONT_DEV", false),
		LogLevel:    stringWithDefault(lookup, "STOREFRONT_LOG_LEVEL", defaultLogLevel),
		Server: ServerConfig{
			Port:         strings.TrimPrefix(port, ":"),
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Paths: PathsConfig{
			Templates: stringWithDefault(lookup, "STOREFRONT_TEMPLATES_DIR", defaultTemplatesDir),
			Public:    stringWithDefault(lookup, "STOREFRONT_PUBLIC_DIR", defaultPublicDir),
			Catalog:   stringWithDefault(lookup, "STOREFRONT_CATALOG_PATH", defaultCatalogPath),
		},
		Order: OrderConfig{
			Phone: digitsOnly(stringWithDefault(lookup, "STOREFRONT_ORDER_PHONE", "")),
		},
		Events: EventsConfig{
			AMQPURL:    stringWithDefault(lookup, "STOREFRONT_AMQP_URL", ""),
			Exchange:   stringWithDefault(lookup, "STOREFRONT_AMQP_EXCHANGE", defaultAMQPExchange),
			RoutingKey: stringWithDefault(lookup, "STOREFRONT_AMQP_ROUTING_KEY", defaultAMQPRoutingKey),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: stringWithDefault(lookup, "STOREFRONT_GA_MEASUREMENT_ID", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" || strings.Trim(cfg.Server.Port, "0123456789") != "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if strings.TrimSpace(cfg.Paths.Templates) == "" {
		missing = append(missing, "Paths.Templates")
	}
	if strings.TrimSpace(cfg.Paths.Catalog) == "" {
		missing = append(missing, "Paths.Catalog")
	}
	if cfg.Events.AMQPURL != "" && strings.TrimSpace(cfg.Events.RoutingKey) == "" {
		missing = append(missing, "Events.RoutingKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(value, "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// digitsOnly strips formatting from phone numbers ("+55 (32) 98413-0717" -> "5532984130717").
func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
