package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/osse101/cosmos-agent/internal/logger"
)

// Config holds the agent configuration
type Config struct {
	RPCURL         string `validate:"required,url"`
	ChainID        int64  `validate:"min=0"`
	WorldAddress   string `validate:"required,eth_addr"`
	LandNFTAddress string `validate:"required,eth_addr"`
	IndexerURL     string `validate:"required,url"`
	ABIDir         string
	ItemsCSV       string
	PrivateKey     string `validate:"required,len=64,hexadecimal"`
	LandID         int64  `validate:"min=0"`
	Namespace      string `validate:"max=14"`

	WaitForConfirmation   bool
	ConfirmationTimeout   time.Duration `validate:"gt=0"`
	GasMultiplier         float64       `validate:"gte=1"`
	UnlockDefaultInterval time.Duration `validate:"gt=0"`
	UnlockSafetyMargin    time.Duration `validate:"gte=0"`
	CraftMaxPlanSteps     int           `validate:"min=0"`
	CacheSize             int           `validate:"min=1"`
	CacheTTL              time.Duration `validate:"gt=0"`
	IndexerMaxRetries     int           `validate:"min=0"`

	HTTPPort           int `validate:"min=1,max=65535"`
	APIKey             string
	TrustedProxies     []string
	JournalDatabaseURL string

	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFormat   string `validate:"oneof=json text"`
	Environment string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:         getEnv(EnvRPCURL, ""),
		ChainID:        getEnvAsInt64(EnvChainID, DefaultChainID),
		WorldAddress:   getEnv(EnvWorldAddress, ""),
		LandNFTAddress: getEnv(EnvLandNFTAddress, ""),
		IndexerURL:     strings.TrimRight(getEnv(EnvIndexerURL, ""), "/"),
		ABIDir:         getEnv(EnvABIDir, DefaultABIDir),
		ItemsCSV:       getEnv(EnvItemsCSV, DefaultItemsCSV),
		PrivateKey:     strings.TrimPrefix(getEnv(EnvPrivateKey, ""), "0x"),
		LandID:         getEnvAsInt64(EnvLandID, DefaultLandID),
		Namespace:      getEnv(EnvNamespace, DefaultNamespace),

		WaitForConfirmation:   getEnvAsBool(EnvWaitForConfirmation, DefaultWaitForConfirmation),
		ConfirmationTimeout:   getEnvAsDuration(EnvConfirmationTimeout, DefaultConfirmationTimeout),
		GasMultiplier:         getEnvAsFloat(EnvGasMultiplier, DefaultGasMultiplier),
		UnlockDefaultInterval: getEnvAsDuration(EnvUnlockDefaultInterval, DefaultUnlockDefaultInterval),
		UnlockSafetyMargin:    getEnvAsDuration(EnvUnlockSafetyMargin, DefaultUnlockSafetyMargin),
		CraftMaxPlanSteps:     getEnvAsInt(EnvCraftMaxPlanSteps, DefaultCraftMaxPlanSteps),
		CacheSize:             getEnvAsInt(EnvCacheSize, DefaultCacheSize),
		CacheTTL:              getEnvAsDuration(EnvCacheTTL, DefaultCacheTTL),
		IndexerMaxRetries:     getEnvAsInt(EnvIndexerMaxRetries, DefaultIndexerMaxRetries),

		HTTPPort:           getEnvAsInt(EnvHTTPPort, DefaultHTTPPort),
		APIKey:             getEnv(EnvAPIKey, ""),
		TrustedProxies:     getEnvAsList(EnvTrustedProxies),
		JournalDatabaseURL: getEnv(EnvJournalDatabaseURL, ""),

		LogLevel:    strings.ToLower(getEnv(EnvLogLevel, DefaultLogLevel)),
		LogFormat:   strings.ToLower(getEnv(EnvLogFormat, DefaultLogFormat)),
		Environment: getEnv(EnvEnvironment, DefaultEnvironment),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every failing field by its
// environment variable name
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", envName(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}

// JournalEnabled reports whether submissions are persisted
func (c *Config) JournalEnabled() bool {
	return c.JournalDatabaseURL != ""
}

// LoggerConfig derives the logger settings
func (c *Config) LoggerConfig(version string) logger.Config {
	return logger.NewConfig(c.LogLevel, c.LogFormat, logger.DefaultServiceName, version, c.Environment, c.LogLevel == "debug")
}

var fieldEnv = map[string]string{
	"RPCURL":                EnvRPCURL,
	"ChainID":               EnvChainID,
	"WorldAddress":          EnvWorldAddress,
	"LandNFTAddress":        EnvLandNFTAddress,
	"IndexerURL":            EnvIndexerURL,
	"PrivateKey":            EnvPrivateKey,
	"LandID":                EnvLandID,
	"Namespace":             EnvNamespace,
	"ConfirmationTimeout":   EnvConfirmationTimeout,
	"GasMultiplier":         EnvGasMultiplier,
	"UnlockDefaultInterval": EnvUnlockDefaultInterval,
	"UnlockSafetyMargin":    EnvUnlockSafetyMargin,
	"CraftMaxPlanSteps":     EnvCraftMaxPlanSteps,
	"CacheSize":             EnvCacheSize,
	"CacheTTL":              EnvCacheTTL,
	"IndexerMaxRetries":     EnvIndexerMaxRetries,
	"HTTPPort":              EnvHTTPPort,
	"LogLevel":              EnvLogLevel,
	"LogFormat":             EnvLogFormat,
}

func envName(field string) string {
	if name, ok := fieldEnv[field]; ok {
		return name
	}
	return field
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("30s") and bare seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
