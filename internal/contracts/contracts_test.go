package contracts

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/pkg/types"
)

// stubCaller answers every call with the packed outputs of one method.
type stubCaller struct {
	kind   Kind
	method string
	values []any
	lastTo common.Address
}

func (s *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	s.lastTo = *msg.To
	return ABI(s.kind).Methods[s.method].Outputs.Pack(s.values...)
}

var (
	propertyAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	unitAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	guestAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestKinds(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotNil(t, ABI(k), k.String())
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("hotel-chain")
	assert.Error(t, err)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestPackRejectsBadArguments(t *testing.T) {
	_, err := Pack(Unit, "setActive", "yes")
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = Pack(Unit, "noSuchMethod")
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestReadSingleValues(t *testing.T) {
	ctx := context.Background()

	caller := &stubCaller{kind: Unit, method: "defaultPrice", values: []any{big.NewInt(10000)}}
	price, err := Read[*big.Int](ctx, Bind(Unit, unitAddr, caller), "defaultPrice")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), price.Int64())
	assert.Equal(t, unitAddr, caller.lastTo)

	var name [32]byte
	copy(name[:], "BASIC_ROOM")
	caller = &stubCaller{kind: Property, method: "getUnitTypeNames", values: []any{[][32]byte{name}}}
	names, err := Read[[][32]byte](ctx, Bind(Property, propertyAddr, caller), "getUnitTypeNames")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, name, names[0])

	caller = &stubCaller{kind: Unit, method: "currencyCode", values: []any{[8]byte{0, 0, 0, 0, 0, 0, 3, 0xd2}}}
	code, err := Read[[8]byte](ctx, Bind(Unit, unitAddr, caller), "currencyCode")
	require.NoError(t, err)
	assert.Equal(t, byte(0xd2), code[7])
}

func TestCallInto(t *testing.T) {
	caller := &stubCaller{kind: Unit, method: "getReservation", values: []any{big.NewInt(0), big.NewInt(5), guestAddr}}

	var res struct {
		SpecialPrice    *big.Int
		SpecialLifPrice *big.Int
		BookedBy        common.Address
	}
	err := Bind(Unit, unitAddr, caller).CallInto(context.Background(), &res, "getReservation", big.NewInt(17000))
	require.NoError(t, err)
	assert.Equal(t, guestAddr, res.BookedBy)
	assert.Equal(t, int64(5), res.SpecialLifPrice.Int64())
}

func TestCallWithoutConnection(t *testing.T) {
	_, err := Read[bool](context.Background(), Bind(Unit, unitAddr, nil), "active")
	assert.Error(t, err)
}

func TestEmptyResultIsDecodeError(t *testing.T) {
	caller := &stubCaller{kind: Unit, method: "setActive"} // no outputs: packs to nothing
	_, err := Read[bool](context.Background(), Bind(Unit, unitAddr, caller), "active")
	assert.True(t, errors.Is(err, types.ErrDecode))
}

func TestDecodeNestedCall(t *testing.T) {
	book, err := Pack(Property, "bookWithLif", unitAddr, guestAddr, big.NewInt(17000), big.NewInt(5))
	require.NoError(t, err)
	begin, err := Pack(Property, "beginCall", book, []byte("guest"))
	require.NoError(t, err)
	approve, err := Pack(Token, "approveData", propertyAddr, big.NewInt(1e18), begin)
	require.NoError(t, err)

	d := NewDecoder()

	outer, err := d.DecodeCall(approve)
	require.NoError(t, err)
	assert.Equal(t, Token, outer.Kind)
	assert.Equal(t, "approveData", outer.Method)

	inner, err := outer.Bytes("data")
	require.NoError(t, err)
	call, err := d.DecodeCall(inner)
	require.NoError(t, err)
	assert.Equal(t, "beginCall", call.Method)

	payload, err := call.Bytes("privateData")
	require.NoError(t, err)
	assert.Equal(t, []byte("guest"), payload)

	public, err := call.Bytes("publicCallData")
	require.NoError(t, err)
	booked, err := d.DecodeCall(public)
	require.NoError(t, err)
	assert.Equal(t, "bookWithLif", booked.Method)
	assert.Equal(t, unitAddr, booked.Args["unitAddress"])

	_, err = call.Hash("msgDataHash")
	assert.True(t, errors.Is(err, types.ErrDecode))
}

func TestDecodeCallErrors(t *testing.T) {
	d := NewDecoder(Property)

	_, err := d.DecodeCall([]byte{1, 2})
	assert.True(t, errors.Is(err, types.ErrDecode))

	transfer, err := Pack(Token, "transfer", guestAddr, big.NewInt(1))
	require.NoError(t, err)
	_, err = d.DecodeCall(transfer)
	assert.True(t, errors.Is(err, types.ErrDecode), "token selector unknown to a property-only decoder")

	begin, err := Pack(Property, "beginCall", []byte{1}, []byte{2})
	require.NoError(t, err)
	_, err = d.DecodeCall(begin[:20])
	assert.True(t, errors.Is(err, types.ErrDecode))
}

func TestDecodeLog(t *testing.T) {
	d := NewDecoder()

	data, err := ABI(Property).Events["Book"].Inputs.Pack(guestAddr, unitAddr, big.NewInt(17000), big.NewInt(5))
	require.NoError(t, err)
	ev, err := d.DecodeLog(gethtypes.Log{
		Address: propertyAddr,
		Topics:  []common.Hash{EventID(Property, "Book")},
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal(t, "Book", ev.Name)
	assert.Equal(t, guestAddr, ev.Fields["from"])
	assert.Equal(t, int64(5), ev.Fields["daysAmount"].(*big.Int).Int64())

	value, err := ABI(Token).Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(7))
	require.NoError(t, err)
	ev, err = d.DecodeLog(gethtypes.Log{
		Topics: []common.Hash{
			EventID(Token, "Transfer"),
			common.BytesToHash(guestAddr.Bytes()),
			common.BytesToHash(propertyAddr.Bytes()),
		},
		Data: value,
	})
	require.NoError(t, err)
	assert.Equal(t, guestAddr, ev.Fields["from"])
	assert.Equal(t, propertyAddr, ev.Fields["to"])

	_, err = d.DecodeLog(gethtypes.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	assert.True(t, errors.Is(err, types.ErrDecode))
}

func TestArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Unit.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"contractName":"Unit","bytecode":"0x6080604052"}`), 0o600))

	art, err := LoadArtifact(Unit, path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, art.Bytecode)

	var name [32]byte
	copy(name[:], "BASIC_ROOM")
	data, err := art.DeployData(propertyAddr, name)
	require.NoError(t, err)
	assert.Len(t, data, 5+64)
	assert.Equal(t, art.Bytecode, data[:5])

	_, err = NewArtifact(Property, []byte{1})
	assert.Error(t, err, "property has no constructor")

	_, err = NewArtifact(Unit, nil)
	assert.Error(t, err)
}
