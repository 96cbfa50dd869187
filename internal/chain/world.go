package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/osse101/cosmos-agent/internal/domain"
)

const worldABIJSON = `[
	{"type":"function","name":"batchCall","stateMutability":"nonpayable",
	 "inputs":[{"name":"systemCalls","type":"tuple[]","internalType":"struct SystemCallData[]","components":[
		{"name":"systemId","type":"bytes32","internalType":"ResourceId"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnDatas","type":"bytes[]"}]},
	{"type":"function","name":"call","stateMutability":"payable",
	 "inputs":[{"name":"systemId","type":"bytes32","internalType":"ResourceId"},{"name":"callData","type":"bytes"}],
	 "outputs":[{"name":"","type":"bytes"}]}
]`

// systemCallData mirrors the World's SystemCallData tuple
type systemCallData struct {
	SystemId [32]byte `abi:"systemId"`
	CallData []byte   `abi:"callData"`
}

// World packs calls for a MUD World contract
type World struct {
	Address common.Address
	abi     abi.ABI
}

// NewWorld creates a World bound to address
func NewWorld(address common.Address) (*World, error) {
	parsed, err := abi.JSON(strings.NewReader(worldABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse world ABI: %w", err)
	}
	return &World{Address: address, abi: parsed}, nil
}

// PackBatch encodes batchCall over calls, preserving their order
func (w *World) PackBatch(calls []CallDescriptor) ([]byte, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("%w: batch has no calls", domain.ErrInvalidInput)
	}
	tuples := make([]systemCallData, len(calls))
	for i, c := range calls {
		tuples[i] = systemCallData{SystemId: c.SystemID, CallData: c.CallData}
	}
	data, err := w.abi.Pack(MethodBatchCall, tuples)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", MethodBatchCall, err)
	}
	return data, nil
}

// PackCall encodes a single routed call
func (w *World) PackCall(call CallDescriptor) ([]byte, error) {
	data, err := w.abi.Pack(MethodCall, [32]byte(call.SystemID), call.CallData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", MethodCall, err)
	}
	return data, nil
}

// BatchCall builds the contract call submitting calls atomically from sender
func (w *World) BatchCall(from common.Address, calls []CallDescriptor) (Call, error) {
	data, err := w.PackBatch(calls)
	if err != nil {
		return Call{}, err
	}
	return Call{From: from, To: w.Address, Data: data, Value: new(big.Int)}, nil
}

// SingleCall builds the contract call for one routed call from sender
func (w *World) SingleCall(from common.Address, call CallDescriptor) (Call, error) {
	data, err := w.PackCall(call)
	if err != nil {
		return Call{}, err
	}
	return Call{From: from, To: w.Address, Data: data, Value: new(big.Int)}, nil
}

// UnpackBatch decodes the systemCalls argument of batchCall input data
func (w *World) UnpackBatch(data []byte) ([]CallDescriptor, error) {
	method, err := w.abi.MethodById(data)
	if err != nil || method.Name != MethodBatchCall {
		return nil, fmt.Errorf("%w: not a %s payload", domain.ErrInvalidInput, MethodBatchCall)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MethodBatchCall, err)
	}

	var tuples []systemCallData
	if err := method.Inputs.Copy(&tuples, args); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MethodBatchCall, err)
	}
	out := make([]CallDescriptor, len(tuples))
	for i, t := range tuples {
		out[i] = CallDescriptor{SystemID: ResourceID(t.SystemId), CallData: t.CallData}
	}
	return out, nil
}
