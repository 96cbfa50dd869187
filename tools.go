//go:build tools
// +build tools

package tools

// Tool dependencies tracked in go.mod: linting, mock generation, migration
// CLI and benchmark comparison.

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/pressly/goose/v3/cmd/goose"
	_ "github.com/vektra/mockery/v2"
	_ "golang.org/x/perf/cmd/benchstat"
)
