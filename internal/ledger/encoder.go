package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/pkg/types"
)

// Route names the object below a property that a delegated call is for.
type Route struct {
	kind     contracts.Kind
	category string
	unit     common.Address
}

// ToProperty routes a call to the property itself.
func ToProperty() Route {
	return Route{kind: contracts.Property}
}

// ToCategory routes a call through the property to a category by name.
func ToCategory(name string) Route {
	return Route{kind: contracts.Category, category: name}
}

// ToUnit routes a call through the property to a unit.
func ToUnit(unit common.Address) Route {
	return Route{kind: contracts.Unit, unit: unit}
}

// Kind returns the interface the inner call must be encoded for.
func (r Route) Kind() contracts.Kind {
	return r.kind
}

func (r Route) String() string {
	switch r.kind {
	case contracts.Category:
		return "category " + r.category
	case contracts.Unit:
		return "unit " + r.unit.Hex()
	default:
		return "property"
	}
}

// Encoder builds call payloads, including calls delegated through the
// registry. It keeps no state between calls.
type Encoder struct {
	registry common.Address
	caller   ethereum.ContractCaller
}

// NewEncoder creates an encoder for the registry at registry. caller is used
// to resolve delegation indices.
func NewEncoder(registry common.Address, caller ethereum.ContractCaller) *Encoder {
	return &Encoder{registry: registry, caller: caller}
}

// Registry returns the registry address delegated calls are sent to.
func (e *Encoder) Registry() common.Address {
	return e.registry
}

// EncodeDirect encodes method(args) for the contract of kind at target.
func (e *Encoder) EncodeDirect(kind contracts.Kind, target common.Address, method string, args ...any) (Call, error) {
	data, err := contracts.Pack(kind, method, args...)
	if err != nil {
		return Call{}, err
	}
	to := target
	return Call{To: &to, Data: data, Method: kind.String() + "." + method}, nil
}

// DelegationIndex returns the position of property in manager's registry
// list, read from the ledger on every call. Indices shift when properties
// are removed, so a previously read index must never be reused.
func (e *Encoder) DelegationIndex(ctx context.Context, manager, property common.Address) (uint64, error) {
	registry := contracts.Bind(contracts.Registry, e.registry, e.caller)
	properties, err := contracts.Read[[]common.Address](ctx, registry, "getHotelsByManager", manager)
	if err != nil {
		return 0, fmt.Errorf("failed to read properties of %s: %w", manager.Hex(), err)
	}
	for i, addr := range properties {
		if addr == property {
			return uint64(i), nil
		}
	}
	return 0, &types.CallError{Op: "resolve delegation index", Target: property, Err: types.ErrNotManaged}
}

// WrapForProperty wraps inner as the property's dispatch call for route.
func (e *Encoder) WrapForProperty(route Route, inner []byte) ([]byte, error) {
	switch route.kind {
	case contracts.Property:
		return inner, nil
	case contracts.Category:
		name, err := codec.EncodeName(route.category)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode category name")
		}
		return contracts.Pack(contracts.Property, "callUnitType", name, inner)
	case contracts.Unit:
		return contracts.Pack(contracts.Property, "callUnit", route.unit, inner)
	default:
		return nil, errors.Wrapf(types.ErrEncoding, "cannot route to %s", route.kind)
	}
}

// EncodeDelegated wraps inner for route, then as the registry's callHotel
// argument using the delegation index resolved now.
func (e *Encoder) EncodeDelegated(ctx context.Context, manager, property common.Address, route Route, method string, inner []byte) (Call, error) {
	wrapped, err := e.WrapForProperty(route, inner)
	if err != nil {
		return Call{}, err
	}
	index, err := e.DelegationIndex(ctx, manager, property)
	if err != nil {
		return Call{}, err
	}
	data, err := contracts.Pack(contracts.Registry, "callHotel", new(big.Int).SetUint64(index), wrapped)
	if err != nil {
		return Call{}, err
	}
	to := e.registry
	return Call{
		To:     &to,
		Data:   data,
		Method: route.kind.String() + "." + method,
		Delegation: &Delegation{
			Manager:  manager,
			Property: property,
			Index:    index,
		},
	}, nil
}

// Delegate encodes method(args) for route's interface and delegates it.
func (e *Encoder) Delegate(ctx context.Context, manager, property common.Address, route Route, method string, args ...any) (Call, error) {
	inner, err := contracts.Pack(route.kind, method, args...)
	if err != nil {
		return Call{}, err
	}
	return e.EncodeDelegated(ctx, manager, property, route, method, inner)
}

// EncodeBeginCall wraps a property call with an opaque guest payload as a
// two-phase request and returns the content hash the ledger will key it by.
func EncodeBeginCall(publicCall, privateData []byte) ([]byte, common.Hash, error) {
	if privateData == nil {
		privateData = []byte{}
	}
	data, err := contracts.Pack(contracts.Property, "beginCall", publicCall, privateData)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return data, ContentHash(data), nil
}

// ContentHash is the digest of the exact bytes delivered to a property's
// beginCall. Start and finish events carry it.
func ContentHash(beginCallData []byte) common.Hash {
	return crypto.Keccak256Hash(beginCallData)
}
