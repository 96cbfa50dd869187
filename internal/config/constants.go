package config

import "time"

// Environment variable names
const (
	EnvSchemaVersion         = "ENV_SCHEMA_VERSION"
	EnvRPCURL                = "RPC_URL"
	EnvChainID               = "CHAIN_ID"
	EnvWorldAddress          = "WORLD_ADDRESS"
	EnvLandNFTAddress        = "LAND_NFT_ADDRESS"
	EnvIndexerURL            = "INDEXER_URL"
	EnvABIDir                = "ABI_DIR"
	EnvItemsCSV              = "ITEMS_CSV"
	EnvPrivateKey            = "PRIVATE_KEY"
	EnvLandID                = "LAND_ID"
	EnvNamespace             = "MUD_NAMESPACE"
	EnvWaitForConfirmation   = "WAIT_FOR_CONFIRMATION"
	EnvConfirmationTimeout   = "CONFIRMATION_TIMEOUT"
	EnvGasMultiplier         = "GAS_MULTIPLIER"
	EnvUnlockDefaultInterval = "UNLOCK_DEFAULT_INTERVAL"
	EnvUnlockSafetyMargin    = "UNLOCK_SAFETY_MARGIN"
	EnvCraftMaxPlanSteps     = "CRAFT_MAX_PLAN_STEPS"
	EnvCacheSize             = "CACHE_SIZE"
	EnvCacheTTL              = "CACHE_TTL"
	EnvIndexerMaxRetries     = "INDEXER_MAX_RETRIES"
	EnvHTTPPort              = "HTTP_PORT"
	EnvAPIKey                = "API_KEY"
	EnvTrustedProxies        = "TRUSTED_PROXIES"
	EnvJournalDatabaseURL    = "JOURNAL_DATABASE_URL"
	EnvLogLevel              = "LOG_LEVEL"
	EnvLogFormat             = "LOG_FORMAT"
	EnvEnvironment           = "ENVIRONMENT"
)

// Defaults
const (
	DefaultChainID               = 0
	DefaultABIDir                = "abis"
	DefaultItemsCSV              = "Items.csv"
	DefaultLandID                = 1
	DefaultNamespace             = ""
	DefaultWaitForConfirmation   = true
	DefaultConfirmationTimeout   = 120 * time.Second
	DefaultGasMultiplier         = 1.2
	DefaultUnlockDefaultInterval = 30 * time.Second
	DefaultUnlockSafetyMargin    = time.Second
	DefaultCraftMaxPlanSteps     = 256
	DefaultCacheSize             = 64
	DefaultCacheTTL              = 5 * time.Minute
	DefaultIndexerMaxRetries     = 3
	DefaultHTTPPort              = 8080
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"
	DefaultEnvironment           = "dev"
)

// ExampleAPIKey is the placeholder shipped in .env.example
const ExampleAPIKey = "generate_with_openssl_rand_hex_32"
