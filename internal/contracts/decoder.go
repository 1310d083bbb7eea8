package contracts

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/windingtree/wt-client/pkg/types"
)

// DecodedCall is transaction input matched to a method of a known interface.
type DecodedCall struct {
	Kind   Kind
	Method string
	Args   map[string]any
}

// Bytes returns the named bytes argument.
func (c *DecodedCall) Bytes(name string) ([]byte, error) {
	v, ok := c.Args[name].([]byte)
	if !ok {
		return nil, errors.Wrapf(types.ErrDecode, "%s has no bytes argument %q", c.Method, name)
	}
	return v, nil
}

// Hash returns the named bytes32 argument.
func (c *DecodedCall) Hash(name string) (common.Hash, error) {
	v, ok := c.Args[name].([32]byte)
	if !ok {
		return common.Hash{}, errors.Wrapf(types.ErrDecode, "%s has no bytes32 argument %q", c.Method, name)
	}
	return common.Hash(v), nil
}

// DecodedEvent is a log matched to an event of a known interface.
type DecodedEvent struct {
	Kind   Kind
	Name   string
	Fields map[string]any
	Log    gethtypes.Log
}

type methodRef struct {
	kind   Kind
	method abi.Method
}

type eventRef struct {
	kind  Kind
	event abi.Event
}

// Decoder recognizes call data and logs of a fixed set of interfaces.
// Methods with identical signatures on several kinds resolve to the first
// kind given.
type Decoder struct {
	methods map[[4]byte]methodRef
	events  map[common.Hash]eventRef
}

// NewDecoder builds a decoder for kinds, or for every known kind when none are given.
func NewDecoder(kinds ...Kind) *Decoder {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	d := &Decoder{
		methods: make(map[[4]byte]methodRef),
		events:  make(map[common.Hash]eventRef),
	}
	for _, k := range kinds {
		parsed := ABI(k)
		for _, m := range parsed.Methods {
			var sel [4]byte
			copy(sel[:], m.ID)
			if _, dup := d.methods[sel]; !dup {
				d.methods[sel] = methodRef{kind: k, method: m}
			}
		}
		for _, e := range parsed.Events {
			if _, dup := d.events[e.ID]; !dup {
				d.events[e.ID] = eventRef{kind: k, event: e}
			}
		}
	}
	return d
}

// DecodeCall decodes transaction input by its 4-byte selector.
func (d *Decoder) DecodeCall(data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, errors.Wrapf(types.ErrDecode, "call data of %d bytes has no selector", len(data))
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	ref, ok := d.methods[sel]
	if !ok {
		return nil, errors.Wrapf(types.ErrDecode, "unknown selector %x", sel)
	}

	args := make(map[string]any, len(ref.method.Inputs))
	if err := ref.method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, errors.Mark(fmt.Errorf("failed to decode %s arguments: %w", ref.method.Name, err), types.ErrDecode)
	}
	return &DecodedCall{Kind: ref.kind, Method: ref.method.Name, Args: args}, nil
}

// DecodeLog decodes a log by its first topic.
func (d *Decoder) DecodeLog(l gethtypes.Log) (*DecodedEvent, error) {
	if len(l.Topics) == 0 {
		return nil, errors.Wrap(types.ErrDecode, "anonymous log")
	}
	ref, ok := d.events[l.Topics[0]]
	if !ok {
		return nil, errors.Wrapf(types.ErrDecode, "unknown event topic %s", l.Topics[0].Hex())
	}

	fields := make(map[string]any, len(ref.event.Inputs))
	if len(l.Data) > 0 {
		if err := ref.event.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
			return nil, errors.Mark(fmt.Errorf("failed to decode %s data: %w", ref.event.Name, err), types.ErrDecode)
		}
	}
	var indexed abi.Arguments
	for _, in := range ref.event.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			return nil, errors.Mark(fmt.Errorf("failed to decode %s topics: %w", ref.event.Name, err), types.ErrDecode)
		}
	}
	return &DecodedEvent{Kind: ref.kind, Name: ref.event.Name, Fields: fields, Log: l}, nil
}

// EventID returns the topic of an event on kind's interface.
func EventID(kind Kind, name string) common.Hash {
	ev, ok := ABI(kind).Events[name]
	if !ok {
		panic(fmt.Sprintf("%s has no event %s", kind, name))
	}
	return ev.ID
}
