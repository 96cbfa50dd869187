package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/osse101/cosmos-agent/internal/domain"
)

// ResourceID is a MUD resource id: 2-byte type tag, 14-byte namespace and
// 16-byte name, each right-padded with zeros.
type ResourceID [32]byte

// NewSystemID packs a system resource id. Names longer than 16 bytes are
// truncated the way MUD's codegen does; namespaces longer than 14 bytes are
// rejected.
func NewSystemID(namespace, name string) (ResourceID, error) {
	return newResourceID(ResourceTypeSystem, namespace, name)
}

func newResourceID(typ, namespace, name string) (ResourceID, error) {
	var id ResourceID
	if len(typ) != resourceTypeLen {
		return id, fmt.Errorf("%w: resource type %q must be %d bytes", domain.ErrInvalidInput, typ, resourceTypeLen)
	}
	if len(namespace) > namespaceLen {
		return id, fmt.Errorf("%w: namespace %q exceeds %d bytes", domain.ErrInvalidInput, namespace, namespaceLen)
	}
	if name == "" {
		return id, fmt.Errorf("%w: resource name is required", domain.ErrInvalidInput)
	}
	if len(name) > resourceNameLen {
		name = name[:resourceNameLen]
	}

	copy(id[:resourceTypeLen], typ)
	copy(id[resourceTypeLen:resourceTypeLen+namespaceLen], namespace)
	copy(id[resourceTypeLen+namespaceLen:], name)
	return id, nil
}

// Namespace returns the namespace with padding removed
func (r ResourceID) Namespace() string {
	return trimZeros(r[resourceTypeLen : resourceTypeLen+namespaceLen])
}

// Name returns the resource name with padding removed
func (r ResourceID) Name() string {
	return trimZeros(r[resourceTypeLen+namespaceLen:])
}

// Hex returns the 0x-prefixed hex encoding
func (r ResourceID) Hex() string {
	return common.Hash(r).Hex()
}

// String renders "sy:namespace:Name" for logs
func (r ResourceID) String() string {
	return fmt.Sprintf("%s:%s:%s", trimZeros(r[:resourceTypeLen]), r.Namespace(), r.Name())
}

func trimZeros(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
