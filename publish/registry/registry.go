package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// ConfigKey holds the registry in the config file:
//
//	addresses:
//	  ExpiringMultiPartyCreator:
//	    "1": "0x..."
const ConfigKey = "addresses"

var ErrNotFound = errors.New("address not found")

// Registry maps contract names to their deployed address per network id.
// Names are case-insensitive.
type Registry struct {
	addrs map[string]map[uint64]common.Address
}

func New() *Registry {
	return &Registry{addrs: make(map[string]map[uint64]common.Address)}
}

// FromConfig loads the registry stored under ConfigKey. A missing key yields
// an empty registry.
func FromConfig(v *viper.Viper) (*Registry, error) {
	r := New()
	raw := map[string]map[string]string{}
	if err := v.UnmarshalKey(ConfigKey, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ConfigKey, err)
	}
	for name, networks := range raw {
		for network, addr := range networks {
			id, err := strconv.ParseUint(network, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid network id %q: %w", name, network, err)
			}
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("%s on network %d: invalid address %q", name, id, addr)
			}
			r.Register(name, id, common.HexToAddress(addr))
		}
	}
	return r, nil
}

func (r *Registry) Register(name string, networkID uint64, addr common.Address) {
	key := strings.ToLower(name)
	if r.addrs[key] == nil {
		r.addrs[key] = make(map[uint64]common.Address)
	}
	r.addrs[key][networkID] = addr
}

func (r *Registry) Lookup(name string, networkID uint64) (common.Address, error) {
	addr, ok := r.addrs[strings.ToLower(name)][networkID]
	if !ok {
		return common.Address{}, fmt.Errorf("%s on network %d: %w", name, networkID, ErrNotFound)
	}
	return addr, nil
}
