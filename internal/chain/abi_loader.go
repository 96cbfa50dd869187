package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/osse101/cosmos-agent/internal/logger"
)

// LoadABIs walks dir for *.abi.json and *.json files and parses every
// contract interface found. Three layouts are understood: a bare ABI array,
// an object with an "abi" field (forge/hardhat artifacts) and an object with
// "contracts": {name: {"abi": ...}}. Files that fit none are skipped.
//
// A contract is named after its file stem, or after the parent directory
// when the file is called abi.json.
func LoadABIs(ctx context.Context, dir string) (map[string]abi.ABI, error) {
	log := logger.FromContext(ctx)

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open ABI directory: %w", err)
	}

	abis := make(map[string]abi.ABI)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), JSONFileSuffix) {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		parsed, err := parseABIFile(contractName(path), raw)
		if err != nil {
			log.Warn(LogMsgABISkipped, "path", path, "error", err)
			return nil
		}
		for name, a := range parsed {
			if _, exists := abis[name]; !exists {
				abis[name] = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info(LogMsgABIsLoaded, "dir", dir, "contracts", len(abis))
	return abis, nil
}

func contractName(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(base, ABIBareFileName) {
		return filepath.Base(filepath.Dir(path))
	}
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, ABIFileSuffix):
		return base[:len(base)-len(ABIFileSuffix)]
	default:
		return base[:len(base)-len(JSONFileSuffix)]
	}
}

func parseABIFile(name string, raw []byte) (map[string]abi.ABI, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	if trimmed[0] == '[' {
		a, err := abi.JSON(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		return map[string]abi.ABI{name: a}, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}

	if rawABI, ok := doc[abiFieldABI]; ok {
		a, err := abi.JSON(bytes.NewReader(rawABI))
		if err != nil {
			return nil, err
		}
		return map[string]abi.ABI{name: a}, nil
	}

	if rawContracts, ok := doc[abiFieldContracts]; ok {
		var contracts map[string]struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(rawContracts, &contracts); err != nil {
			return nil, err
		}
		out := make(map[string]abi.ABI, len(contracts))
		for contract, body := range contracts {
			if len(body.ABI) == 0 {
				continue
			}
			a, err := abi.JSON(bytes.NewReader(body.ABI))
			if err != nil {
				return nil, fmt.Errorf("contract %s: %w", contract, err)
			}
			out[contract] = a
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	return nil, fmt.Errorf("no ABI found")
}
