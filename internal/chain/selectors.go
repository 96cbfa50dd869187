package chain

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/logger"
)

var selectorPattern = regexp.MustCompile(`0x[a-fA-F0-9]{8}`)

// ErrorRef names a contract-defined error
type ErrorRef struct {
	Contract  string `json:"contract"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// SelectorTable maps a lower-case 8-hex-char error selector (no 0x) to the
// error it identifies
type SelectorTable map[string]ErrorRef

// BuildSelectorTable indexes every error of every loaded contract. Contracts
// are visited in name order and the first definition of a selector wins.
func BuildSelectorTable(ctx context.Context, abis map[string]abi.ABI) SelectorTable {
	log := logger.FromContext(ctx)

	names := make([]string, 0, len(abis))
	for name := range abis {
		names = append(names, name)
	}
	sort.Strings(names)

	table := make(SelectorTable)
	for _, contract := range names {
		for _, e := range abis[contract].Errors {
			sel := strings.ToLower(strings.TrimPrefix(e.ID.Hex(), "0x")[:SelectorHexLen])
			if existing, ok := table[sel]; ok {
				if existing.Contract != contract && existing.Signature != e.Sig {
					log.Warn(LogMsgSelectorClash, "selector", sel, "kept", existing.Contract, "ignored", contract)
				}
				continue
			}
			table[sel] = ErrorRef{Contract: contract, Name: e.Name, Signature: e.Sig}
		}
	}
	return table
}

// Lookup finds the error for a selector given with or without 0x, in any case.
// Longer payloads are cut to their first four bytes.
func (t SelectorTable) Lookup(selector string) (ErrorRef, bool) {
	sel := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(selector, "0x"), "0X"))
	if len(sel) < SelectorHexLen {
		return ErrorRef{}, false
	}
	ref, ok := t[sel[:SelectorHexLen]]
	return ref, ok
}

// Revert is the raw rejection extracted from a node error
type Revert struct {
	Selector string
	Payload  string
}

// ExtractRevert pulls the revert payload out of err. JSON-RPC error data is
// preferred; otherwise the first 0x-prefixed 4-byte hex run in a revert
// message is taken as the selector.
func ExtractRevert(err error) (Revert, bool) {
	if err == nil {
		return Revert{}, false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok && strings.HasPrefix(data, "0x") {
			rev := Revert{Payload: data}
			if len(data) >= 2+SelectorHexLen {
				rev.Selector = strings.ToLower(data[2 : 2+SelectorHexLen])
			}
			return rev, true
		}
	}

	msg := err.Error()
	if !strings.Contains(strings.ToLower(msg), "revert") {
		return Revert{}, false
	}
	rev := Revert{Payload: msg}
	if m := selectorPattern.FindString(msg); m != "" {
		rev.Selector = strings.ToLower(m[2:])
	}
	return rev, true
}

// IsTransportError reports whether err is a network or deadline failure rather
// than an answer from the node
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrTransport) ||
		errors.Is(err, domain.ErrConfirmationTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
