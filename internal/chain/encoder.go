package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// SystemKind selects the logical MUD system a call is routed to
type SystemKind int

const (
	SystemCrafting SystemKind = iota
	SystemPlacement
	SystemLandCreation
	SystemUnlock
)

func (k SystemKind) String() string {
	switch k {
	case SystemCrafting:
		return "crafting"
	case SystemPlacement:
		return "placement"
	case SystemLandCreation:
		return "land-creation"
	case SystemUnlock:
		return "unlock"
	default:
		return fmt.Sprintf("system(%d)", int(k))
	}
}

// CallDescriptor is one routed system call inside a World batchCall
type CallDescriptor struct {
	SystemID ResourceID
	CallData []byte
	Label    string
}

// CallRequest carries the arguments any system call may need. Each encoder
// reads only the fields its method takes.
type CallRequest struct {
	LandID domain.LandID
	ItemID domain.ItemID
	Coord  domain.Coord
	Limit  domain.Coord
}

// CallEncoder turns a request into a call descriptor for one system
type CallEncoder interface {
	Kind() SystemKind
	SystemID() ResourceID
	Encode(req CallRequest) (CallDescriptor, error)
}

const systemsABIJSON = `[
	{"type":"function","name":"craftRecipe","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"landId","type":"uint256"},{"name":"itemId","type":"uint256"}]},
	{"type":"function","name":"placeItem","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"landId","type":"uint256"},{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"itemId","type":"uint256"}]},
	{"type":"function","name":"createLand","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"limitX","type":"uint256"},{"name":"limitY","type":"uint256"}]},
	{"type":"function","name":"timeUnlockItem","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"landId","type":"uint256"},{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}
]`

var (
	systemsABIOnce sync.Once
	systemsABI     abi.ABI
	systemsABIErr  error
)

func loadSystemsABI() (abi.ABI, error) {
	systemsABIOnce.Do(func() {
		systemsABI, systemsABIErr = abi.JSON(strings.NewReader(systemsABIJSON))
	})
	return systemsABI, systemsABIErr
}

type systemEncoder struct {
	kind   SystemKind
	id     ResourceID
	method string
	args   func(CallRequest) []interface{}
	label  func(CallRequest) string
}

// NewCallEncoder builds the encoder for kind. The system id is computed once.
func NewCallEncoder(kind SystemKind, namespace, systemName string) (CallEncoder, error) {
	if _, err := loadSystemsABI(); err != nil {
		return nil, fmt.Errorf("failed to parse system ABI: %w", err)
	}

	e := &systemEncoder{kind: kind}
	switch kind {
	case SystemCrafting:
		e.method = MethodCraft
		e.args = func(r CallRequest) []interface{} {
			return []interface{}{big.NewInt(int64(r.LandID)), big.NewInt(int64(r.ItemID))}
		}
		e.label = func(r CallRequest) string {
			return fmt.Sprintf("%s(land=%d, item=%d)", MethodCraft, r.LandID, r.ItemID)
		}
	case SystemPlacement:
		e.method = MethodPlaceItem
		e.args = func(r CallRequest) []interface{} {
			return []interface{}{big.NewInt(int64(r.LandID)), big.NewInt(int64(r.Coord.X)), big.NewInt(int64(r.Coord.Y)), big.NewInt(int64(r.ItemID))}
		}
		e.label = func(r CallRequest) string {
			return fmt.Sprintf("%s(land=%d, at=%s, item=%d)", MethodPlaceItem, r.LandID, r.Coord, r.ItemID)
		}
	case SystemLandCreation:
		e.method = MethodCreateLand
		e.args = func(r CallRequest) []interface{} {
			return []interface{}{big.NewInt(int64(r.Limit.X)), big.NewInt(int64(r.Limit.Y))}
		}
		e.label = func(r CallRequest) string {
			return fmt.Sprintf("%s(%dx%d)", MethodCreateLand, r.Limit.X, r.Limit.Y)
		}
	case SystemUnlock:
		e.method = MethodUnlock
		e.args = func(r CallRequest) []interface{} {
			return []interface{}{big.NewInt(int64(r.LandID)), big.NewInt(int64(r.Coord.X)), big.NewInt(int64(r.Coord.Y))}
		}
		e.label = func(r CallRequest) string {
			return fmt.Sprintf("%s(land=%d, at=%s)", MethodUnlock, r.LandID, r.Coord)
		}
	default:
		return nil, fmt.Errorf("%w: unknown system kind %d", domain.ErrInvalidInput, int(kind))
	}

	id, err := NewSystemID(namespace, systemName)
	if err != nil {
		return nil, err
	}
	e.id = id
	return e, nil
}

func (e *systemEncoder) Kind() SystemKind     { return e.kind }
func (e *systemEncoder) SystemID() ResourceID { return e.id }

func (e *systemEncoder) Encode(req CallRequest) (CallDescriptor, error) {
	if req.LandID < 0 || req.ItemID < 0 || req.Coord.X < 0 || req.Coord.Y < 0 || req.Limit.X < 0 || req.Limit.Y < 0 {
		return CallDescriptor{}, fmt.Errorf("%w: negative argument in %s", domain.ErrInvalidInput, e.label(req))
	}
	data, err := systemsABI.Pack(e.method, e.args(req)...)
	if err != nil {
		return CallDescriptor{}, fmt.Errorf("failed to encode %s: %w", e.method, err)
	}
	return CallDescriptor{SystemID: e.id, CallData: data, Label: e.label(req)}, nil
}

// SystemNames maps each logical system to its registered MUD name
type SystemNames map[SystemKind]string

// DefaultSystemNames returns the stock system names of the world
func DefaultSystemNames() SystemNames {
	return SystemNames{
		SystemCrafting:     SystemNameCrafting,
		SystemPlacement:    SystemNamePlacement,
		SystemLandCreation: SystemNameLandCreation,
		SystemUnlock:       SystemNameUnlock,
	}
}

// Encoders holds one encoder per logical system
type Encoders struct {
	byKind map[SystemKind]CallEncoder
}

// NewEncoders builds an encoder for every system in names
func NewEncoders(namespace string, names SystemNames) (*Encoders, error) {
	if names == nil {
		names = DefaultSystemNames()
	}
	set := &Encoders{byKind: make(map[SystemKind]CallEncoder, len(names))}
	for kind, name := range names {
		enc, err := NewCallEncoder(kind, namespace, name)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s encoder: %w", kind, err)
		}
		set.byKind[kind] = enc
	}
	return set, nil
}

// Encode routes req to the encoder of kind
func (s *Encoders) Encode(kind SystemKind, req CallRequest) (CallDescriptor, error) {
	enc, ok := s.byKind[kind]
	if !ok {
		return CallDescriptor{}, fmt.Errorf("%w: no encoder for %s system", domain.ErrInvalidInput, kind)
	}
	return enc.Encode(req)
}

// Craft encodes one craft of item on land
func (s *Encoders) Craft(landID domain.LandID, item domain.ItemID) (CallDescriptor, error) {
	return s.Encode(SystemCrafting, CallRequest{LandID: landID, ItemID: item})
}

// Unlock encodes a time unlock of the item at coord
func (s *Encoders) Unlock(landID domain.LandID, coord domain.Coord) (CallDescriptor, error) {
	return s.Encode(SystemUnlock, CallRequest{LandID: landID, Coord: coord})
}

// Place encodes placing item at coord
func (s *Encoders) Place(landID domain.LandID, coord domain.Coord, item domain.ItemID) (CallDescriptor, error) {
	return s.Encode(SystemPlacement, CallRequest{LandID: landID, Coord: coord, ItemID: item})
}

// CreateLand encodes creating a new land of limit.X by limit.Y cells
func (s *Encoders) CreateLand(limit domain.Coord) (CallDescriptor, error) {
	return s.Encode(SystemLandCreation, CallRequest{Limit: limit})
}
