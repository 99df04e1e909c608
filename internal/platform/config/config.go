package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultDedupCacheTTL       = 5 * time.Minute
	defaultDedupCacheSweepSize = 100
	defaultExactMatchLimit     = 5
	defaultPhoneFallbackLimit  = 50
	defaultNameScanLimit       = 100
	defaultAddressScanLimit    = 50
	defaultNameThreshold       = 80
	defaultAddressThreshold    = 85
	defaultMinAddressLength    = 20
	defaultMaxMatches          = 10
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Dedup     DedupConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// DedupConfig tunes the duplicate detection engine. The scan caps are
// deliberately distinct per pass: the phone fallback and address scans stay
// at 50 while the name scan reads 100 recent records.
type DedupConfig struct {
	CacheTTL           time.Duration
	CacheSweepSize     int
	ExactMatchLimit    int
	PhoneFallbackLimit int
	NameScanLimit      int
	AddressScanLimit   int
	NameThreshold      int
	AddressThreshold   int
	MinAddressLength   int
	MaxMatches         int
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

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
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

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Dedup: DedupConfig{
			CacheTTL:           durationWithDefault(lookup, "API_DEDUP_CACHE_TTL", defaultDedupCacheTTL),
			CacheSweepSize:     intWithDefault(lookup, "API_DEDUP_CACHE_SWEEP_SIZE", defaultDedupCacheSweepSize),
			ExactMatchLimit:    intWithDefault(lookup, "API_DEDUP_EXACT_LIMIT", defaultExactMatchLimit),
			PhoneFallbackLimit: intWithDefault(lookup, "API_DEDUP_PHONE_FALLBACK_LIMIT", defaultPhoneFallbackLimit),
			NameScanLimit:      intWithDefault(lookup, "API_DEDUP_NAME_SCAN_LIMIT", defaultNameScanLimit),
			AddressScanLimit:   intWithDefault(lookup, "API_DEDUP_ADDRESS_SCAN_LIMIT", defaultAddressScanLimit),
			NameThreshold:      intWithDefault(lookup, "API_DEDUP_NAME_THRESHOLD", defaultNameThreshold),
			AddressThreshold:   intWithDefault(lookup, "API_DEDUP_ADDRESS_THRESHOLD", defaultAddressThreshold),
			MinAddressLength:   intWithDefault(lookup, "API_DEDUP_MIN_ADDRESS_LENGTH", defaultMinAddressLength),
			MaxMatches:         intWithDefault(lookup, "API_DEDUP_MAX_MATCHES", defaultMaxMatches),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Dedup.CacheTTL <= 0 {
		missing = append(missing, "Dedup.CacheTTL")
	}
	if cfg.Dedup.CacheSweepSize <= 0 {
		missing = append(missing, "Dedup.CacheSweepSize")
	}
	if cfg.Dedup.ExactMatchLimit <= 0 {
		missing = append(missing, "Dedup.ExactMatchLimit")
	}
	if cfg.Dedup.PhoneFallbackLimit <= 0 {
		missing = append(missing, "Dedup.PhoneFallbackLimit")
	}
	if cfg.Dedup.NameScanLimit <= 0 {
		missing = append(missing, "Dedup.NameScanLimit")
	}
	if cfg.Dedup.AddressScanLimit <= 0 {
		missing = append(missing, "Dedup.AddressScanLimit")
	}
	if cfg.Dedup.NameThreshold <= 0 || cfg.Dedup.NameThreshold > 100 {
		missing = append(missing, "Dedup.NameThreshold")
	}
	if cfg.Dedup.AddressThreshold <= 0 || cfg.Dedup.AddressThreshold > 100 {
		missing = append(missing, "Dedup.AddressThreshold")
	}
	if cfg.Dedup.MaxMatches <= 0 {
		missing = append(missing, "Dedup.MaxMatches")
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
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
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

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
