package config

import (
	"fmt"
	"os"
	"strings"
)

// ExpectedEnvSchemaVersion is the schema version that the agent expects
const ExpectedEnvSchemaVersion = "1.0"

// RequiredEnvVars lists all environment variables that must be set
var RequiredEnvVars = []string{
	EnvSchemaVersion,
	EnvRPCURL,
	EnvWorldAddress,
	EnvLandNFTAddress,
	EnvIndexerURL,
	EnvPrivateKey,
}

// ValidateEnv checks that all required environment variables are set
// and that the schema version matches expectations
func ValidateEnv() error {
	schemaVersion := os.Getenv(EnvSchemaVersion)
	if schemaVersion == "" {
		return fmt.Errorf("%s is not set - please update your .env file to include this field (expected: %s)", EnvSchemaVersion, ExpectedEnvSchemaVersion)
	}

	if schemaVersion != ExpectedEnvSchemaVersion {
		return fmt.Errorf("%s mismatch: expected %s, got %s - your .env file may be outdated", EnvSchemaVersion, ExpectedEnvSchemaVersion, schemaVersion)
	}

	var missing []string
	for _, envVar := range RequiredEnvVars {
		if os.Getenv(envVar) == "" {
			missing = append(missing, envVar)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

// ValidateEnvWithWarnings checks environment variables and returns warnings
// for non-critical issues
func ValidateEnvWithWarnings() ([]string, error) {
	if err := ValidateEnv(); err != nil {
		return nil, err
	}

	var warnings []string

	switch os.Getenv(EnvAPIKey) {
	case "":
		warnings = append(warnings, "API_KEY is not set - the HTTP control API will listen on loopback only, without authentication")
	case ExampleAPIKey:
		warnings = append(warnings, "API_KEY is the example value - generate a real key before exposing the HTTP control API")
	}

	if os.Getenv(EnvJournalDatabaseURL) == "" {
		warnings = append(warnings, "JOURNAL_DATABASE_URL is not set - submissions will not be journaled")
	}

	return warnings, nil
}
