package contracts

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/pkg/types"
)

// Instance is a contract interface bound to an address and a read connection.
type Instance struct {
	kind    Kind
	address common.Address
	abi     *abi.ABI
	caller  ethereum.ContractCaller
}

// Bind resolves kind's interface and binds it to address. caller may be nil
// when the instance is only used for encoding.
func Bind(kind Kind, address common.Address, caller ethereum.ContractCaller) *Instance {
	return &Instance{
		kind:    kind,
		address: address,
		abi:     ABI(kind),
		caller:  caller,
	}
}

func (i *Instance) Kind() Kind {
	return i.kind
}

func (i *Instance) Address() common.Address {
	return i.address
}

// Pack encodes method(args) for this interface.
func (i *Instance) Pack(method string, args ...any) ([]byte, error) {
	return Pack(i.kind, method, args...)
}

// Call performs a read-only call at the latest block and returns the decoded outputs.
func (i *Instance) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := i.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := i.abi.Unpack(method, data)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("failed to unpack %s.%s at %s: %w", i.kind, method, i.address.Hex(), err), types.ErrDecode)
	}
	return out, nil
}

// CallInto performs a read-only call and unpacks a multi-value result into out,
// a pointer to a struct whose exported fields match the output names.
func (i *Instance) CallInto(ctx context.Context, out any, method string, args ...any) error {
	data, err := i.call(ctx, method, args...)
	if err != nil {
		return err
	}
	if err := i.abi.UnpackIntoInterface(out, method, data); err != nil {
		return errors.Mark(fmt.Errorf("failed to unpack %s.%s at %s: %w", i.kind, method, i.address.Hex(), err), types.ErrDecode)
	}
	return nil
}

func (i *Instance) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	if i.caller == nil {
		return nil, fmt.Errorf("%s at %s is not bound to a connection", i.kind, i.address.Hex())
	}
	input, err := i.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := i.address
	data, err := i.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s.%s at %s: %w", i.kind, method, i.address.Hex(), err)
	}
	return data, nil
}

// Read performs a call with a single return value converted to T.
func Read[T any](ctx context.Context, i *Instance, method string, args ...any) (T, error) {
	var zero T
	out, err := i.Call(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, errors.Wrapf(types.ErrDecode, "%s.%s returned %d values", i.kind, method, len(out))
	}
	converted, ok := abi.ConvertType(out[0], new(T)).(*T)
	if !ok {
		return zero, errors.Wrapf(types.ErrDecode, "%s.%s returned %T", i.kind, method, out[0])
	}
	return *converted, nil
}

// Pack encodes method(args) against kind's interface. Argument mismatches are
// encoding errors.
func Pack(kind Kind, method string, args ...any) ([]byte, error) {
	data, err := ABI(kind).Pack(method, args...)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("failed to encode %s.%s: %w", kind, method, err), types.ErrEncoding)
	}
	return data, nil
}
