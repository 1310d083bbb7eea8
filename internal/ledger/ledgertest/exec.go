package ledgertest

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/windingtree/wt-client/internal/contracts"
)

const (
	txBaseGas   = 21_000
	callGas     = 9_000
	mutationGas = 20_000
	viewGas     = 800
	logGas      = 3_750
	maxDepth    = 16
	maxDays     = 3_660
)

// Revert is the error of a call the emulated contracts reject.
type Revert struct {
	Reason string
}

func (r *Revert) Error() string {
	return "execution reverted: " + r.Reason
}

func revert(format string, args ...any) error {
	return &Revert{Reason: fmt.Sprintf(format, args...)}
}

// frame executes one transaction or read against a world.
type frame struct {
	w      *world
	block  uint64
	origin common.Address
	logs   []*types.Log
	gas    uint64
	depth  int
}

func newFrame(w *world, block uint64, origin common.Address, data []byte) *frame {
	return &frame{
		w:      w,
		block:  block,
		origin: origin,
		gas:    txBaseGas + 16*uint64(len(data)),
	}
}

func (f *frame) emit(kind contracts.Kind, address common.Address, name string, args ...any) {
	ev := contracts.ABI(kind).Events[name]
	topics := []common.Hash{ev.ID}
	var data []any
	var nonIndexed abi.Arguments
	for i, in := range ev.Inputs {
		if in.Indexed {
			topics = append(topics, common.BytesToHash(args[i].(common.Address).Bytes()))
			continue
		}
		nonIndexed = append(nonIndexed, in)
		data = append(data, args[i])
	}
	packed, err := nonIndexed.Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("ledgertest: pack %s: %v", name, err))
	}
	f.gas += logGas
	f.logs = append(f.logs, &types.Log{Address: address, Topics: topics, Data: packed})
}

// call runs data against the contract at to with from as the sender.
func (f *frame) call(from, to common.Address, data []byte) ([]byte, error) {
	f.depth++
	defer func() { f.depth-- }()
	if f.depth > maxDepth {
		return nil, revert("call depth exceeded")
	}
	f.gas += callGas

	kind, ok := f.w.kinds[to]
	if !ok {
		if len(data) == 0 {
			return nil, nil
		}
		return nil, revert("no contract at %s", to.Hex())
	}
	if len(data) < 4 {
		return nil, revert("missing selector")
	}
	method, err := contracts.ABI(kind).MethodById(data[:4])
	if err != nil {
		return nil, revert("%s has no method %x", kind, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, revert("bad arguments for %s: %v", method.Name, err)
	}
	if method.IsConstant() {
		f.gas += viewGas
	} else {
		f.gas += mutationGas
	}

	var out []any
	switch kind {
	case contracts.Registry:
		out, err = f.registry(from, to, method.Name, args)
	case contracts.Property:
		out, err = f.property(from, to, method.Name, args, data)
	case contracts.Category:
		out, err = f.category(from, to, method.Name, args)
	case contracts.Unit:
		out, err = f.unit(from, to, method.Name, args)
	case contracts.Token:
		out, err = f.token(from, to, method.Name, args)
	}
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// deploy creates a category or unit from creation code.
func (f *frame) deploy(from common.Address, nonce uint64, data []byte, code map[contracts.Kind][]byte) (common.Address, error) {
	for _, kind := range []contracts.Kind{contracts.Category, contracts.Unit} {
		prefix := code[kind]
		if len(prefix) == 0 || !bytes.HasPrefix(data, prefix) {
			continue
		}
		args, err := contracts.ABI(kind).Constructor.Inputs.Unpack(data[len(prefix):])
		if err != nil {
			return common.Address{}, revert("bad constructor arguments: %v", err)
		}
		owner := args[0].(common.Address)
		unitType := args[1].([32]byte)
		addr := crypto.CreateAddress(from, nonce)
		f.gas += 200_000

		f.w.kinds[addr] = kind
		if kind == contracts.Category {
			f.w.categories[addr] = &categoryState{
				owner:     owner,
				unitType:  unitType,
				minGuests: new(big.Int),
				maxGuests: new(big.Int),
			}
		} else {
			f.w.units[addr] = &unitState{
				owner:           owner,
				unitType:        unitType,
				defaultPrice:    new(big.Int),
				defaultLifPrice: new(big.Int),
				calendar:        make(map[int64]*reservation),
			}
		}
		return addr, nil
	}
	return common.Address{}, revert("unknown creation code")
}

func (f *frame) registry(from, self common.Address, method string, args []any) ([]any, error) {
	r := f.w.registry
	switch method {
	case "registerHotel":
		nonce := f.w.creations[self]
		f.w.creations[self] = nonce + 1
		addr := crypto.CreateAddress(self, nonce)
		f.w.kinds[addr] = contracts.Property
		f.w.properties[addr] = &propertyState{
			owner:       self,
			manager:     from,
			name:        args[0].(string),
			description: args[1].(string),
			created:     f.block,
			timezone:    new(big.Int),
			latitude:    new(big.Int),
			longitude:   new(big.Int),
			unitTypes:   make(map[[32]byte]common.Address),
			pending:     make(map[common.Hash]*pendingCall),
		}
		r.hotels = append(r.hotels, addr)
		r.byManager[from] = append(r.byManager[from], addr)
		f.emit(contracts.Registry, self, "HotelRegistered", addr, big.NewInt(int64(len(r.byManager[from])-1)))
		return nil, nil

	case "removeHotel":
		list := r.byManager[from]
		index := args[0].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(list)) {
			return nil, revert("no property at index %s", index)
		}
		i := index.Uint64()
		removed := list[i]
		r.byManager[from] = append(list[:i:i], list[i+1:]...)
		for j, h := range r.hotels {
			if h == removed {
				r.hotels = append(r.hotels[:j:j], r.hotels[j+1:]...)
				break
			}
		}
		return nil, nil

	case "callHotel":
		list := r.byManager[from]
		index := args[0].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(list)) {
			return nil, revert("no property at index %s", index)
		}
		_, err := f.call(self, list[index.Uint64()], args[1].([]byte))
		return nil, err

	case "getHotelsByManager":
		list := r.byManager[args[0].(common.Address)]
		if list == nil {
			list = []common.Address{}
		}
		return []any{list}, nil

	case "getHotels":
		list := r.hotels
		if list == nil {
			list = []common.Address{}
		}
		return []any{list}, nil

	case "LifToken":
		for addr, k := range f.w.kinds {
			if k == contracts.Token {
				return []any{addr}, nil
			}
		}
		return []any{common.Address{}}, nil
	}
	return nil, revert("registry.%s not emulated", method)
}

func (f *frame) property(from, self common.Address, method string, args []any, input []byte) ([]any, error) {
	p := f.w.properties[self]
	onlyOwner := func() error {
		if from != p.owner {
			return revert("property.%s: sender %s is not the owner", method, from.Hex())
		}
		return nil
	}
	fromSelf := func() error {
		if from != self {
			return revert("property.%s may only be called by the property", method)
		}
		return nil
	}

	switch method {
	case "name":
		return []any{p.name}, nil
	case "description":
		return []any{p.description}, nil
	case "manager":
		return []any{p.manager}, nil
	case "owner":
		return []any{p.owner}, nil
	case "lineOne":
		return []any{p.lineOne}, nil
	case "lineTwo":
		return []any{p.lineTwo}, nil
	case "zip":
		return []any{p.zip}, nil
	case "country":
		return []any{p.country}, nil
	case "created":
		return []any{new(big.Int).SetUint64(p.created)}, nil
	case "timezone":
		return []any{p.timezone}, nil
	case "latitude":
		return []any{p.latitude}, nil
	case "longitude":
		return []any{p.longitude}, nil
	case "waitConfirmation":
		return []any{p.waitConfirmation}, nil
	case "getImagesLength":
		return []any{big.NewInt(int64(len(p.images)))}, nil
	case "images":
		i := args[0].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(p.images)) {
			return nil, revert("image index out of range")
		}
		return []any{p.images[i.Uint64()]}, nil
	case "getUnitTypeNames":
		names := p.unitTypeNames
		if names == nil {
			names = [][32]byte{}
		}
		return []any{names}, nil
	case "getUnitType":
		return []any{p.unitTypes[args[0].([32]byte)]}, nil
	case "getUnitsLength":
		return []any{big.NewInt(int64(len(p.units)))}, nil
	case "units":
		i := args[0].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(p.units)) {
			return nil, revert("unit index out of range")
		}
		return []any{p.units[i.Uint64()]}, nil

	case "editInfo":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p.name, p.description = args[0].(string), args[1].(string)
		return nil, nil
	case "editAddress":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p.lineOne, p.lineTwo, p.zip, p.country = args[0].(string), args[1].(string), args[2].(string), args[3].(string)
		return nil, nil
	case "editLocation":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p.timezone, p.longitude, p.latitude = args[0].(*big.Int), args[1].(*big.Int), args[2].(*big.Int)
		return nil, nil
	case "changeConfirmation":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p.waitConfirmation = args[0].(bool)
		return nil, nil
	case "addImage":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		p.images = append(p.images, args[0].(string))
		return nil, nil
	case "removeImage":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		i := args[0].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(p.images)) {
			return nil, revert("image index out of range")
		}
		p.images[i.Uint64()] = ""
		return nil, nil

	case "addUnitType":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		addr := args[0].(common.Address)
		cat, ok := f.w.categories[addr]
		if !ok {
			return nil, revert("%s is not a category", addr.Hex())
		}
		if p.unitTypes[cat.unitType] != (common.Address{}) {
			return nil, revert("category already registered")
		}
		p.unitTypes[cat.unitType] = addr
		p.unitTypeNames = append(p.unitTypeNames, cat.unitType)
		return nil, nil
	case "removeUnitType":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		name := args[0].([32]byte)
		i := args[1].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(p.unitTypeNames)) || p.unitTypeNames[i.Uint64()] != name {
			return nil, revert("category name does not match index")
		}
		delete(p.unitTypes, name)
		p.unitTypeNames[i.Uint64()] = [32]byte{}
		return nil, nil
	case "addUnit":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		addr := args[0].(common.Address)
		u, ok := f.w.units[addr]
		if !ok {
			return nil, revert("%s is not a unit", addr.Hex())
		}
		if p.unitTypes[u.unitType] == (common.Address{}) {
			return nil, revert("unit category is not registered")
		}
		p.units = append(p.units, addr)
		return nil, nil
	case "removeUnit":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		addr := args[0].(common.Address)
		for i, u := range p.units {
			if u == addr {
				p.units[i] = common.Address{}
				return nil, nil
			}
		}
		return nil, revert("unit not found")
	case "callUnitType":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		target := p.unitTypes[args[0].([32]byte)]
		if target == (common.Address{}) {
			return nil, revert("unknown category")
		}
		_, err := f.call(self, target, args[1].([]byte))
		return nil, err
	case "callUnit":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		target := args[0].(common.Address)
		if !containsAddress(p.units, target) {
			return nil, revert("unknown unit")
		}
		_, err := f.call(self, target, args[1].([]byte))
		return nil, err

	case "book", "bookWithLif":
		if err := fromSelf(); err != nil {
			return nil, err
		}
		unit := args[0].(common.Address)
		guest := args[1].(common.Address)
		fromDay, days := args[2].(*big.Int), args[3].(*big.Int)
		if !containsAddress(p.units, unit) {
			return nil, revert("unknown unit")
		}
		if method == "bookWithLif" {
			cost := f.w.units[unit].cost(fromDay.Int64(), days.Uint64(), true)
			transfer, _ := contracts.Pack(contracts.Token, "transferFrom", guest, self, cost)
			if _, err := f.call(self, f.tokenAddress(), transfer); err != nil {
				return nil, err
			}
		}
		book, _ := contracts.Pack(contracts.Unit, "book", guest, fromDay, days)
		out, err := f.call(self, unit, book)
		if err != nil {
			return nil, err
		}
		if ok := new(big.Int).SetBytes(out).Sign() != 0; !ok {
			return nil, revert("unit not available")
		}
		f.emit(contracts.Property, self, "Book", guest, unit, fromDay, days)
		return nil, nil

	case "beginCall":
		hash := crypto.Keccak256Hash(input)
		if pc, ok := p.pending[hash]; ok && pc.sender != (common.Address{}) {
			return nil, revert("call already started")
		}
		pc := &pendingCall{callData: args[0].([]byte), sender: from}
		p.pending[hash] = pc
		f.emit(contracts.Property, self, "CallStarted", from, hash)
		if !p.waitConfirmation {
			if _, err := f.call(self, self, pc.callData); err != nil {
				return nil, err
			}
			pc.success = true
			f.emit(contracts.Property, self, "CallFinish", pc.sender, hash)
		}
		return nil, nil
	case "continueCall":
		if err := onlyOwner(); err != nil {
			return nil, err
		}
		hash := common.Hash(args[0].([32]byte))
		pc, ok := p.pending[hash]
		if !ok || pc.sender == (common.Address{}) {
			return nil, revert("no pending call %s", hash.Hex())
		}
		if pc.success {
			return nil, revert("call already finished")
		}
		if _, err := f.call(self, self, pc.callData); err != nil {
			return nil, err
		}
		pc.success = true
		f.emit(contracts.Property, self, "CallFinish", pc.sender, hash)
		return nil, nil
	}
	return nil, revert("property.%s not emulated", method)
}

func (f *frame) category(from, self common.Address, method string, args []any) ([]any, error) {
	c := f.w.categories[self]
	if !contracts.ABI(contracts.Category).Methods[method].IsConstant() && from != c.owner {
		return nil, revert("category.%s: sender %s is not the owner", method, from.Hex())
	}

	switch method {
	case "owner":
		return []any{c.owner}, nil
	case "unitType":
		return []any{c.unitType}, nil
	case "getInfo":
		return []any{c.description, c.minGuests, c.maxGuests, c.price}, nil
	case "getAmenities":
		amenities := c.amenities
		if amenities == nil {
			amenities = []*big.Int{}
		}
		return []any{amenities}, nil
	case "getImagesLength":
		return []any{big.NewInt(int64(len(c.images)))}, nil
	case "images":
		i := args[0].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(c.images)) {
			return nil, revert("image index out of range")
		}
		return []any{c.images[i.Uint64()]}, nil
	case "edit":
		c.description, c.minGuests, c.maxGuests, c.price = args[0].(string), args[1].(*big.Int), args[2].(*big.Int), args[3].(string)
		return nil, nil
	case "addAmenity":
		c.amenities = append(c.amenities, args[0].(*big.Int))
		return nil, nil
	case "removeAmenity":
		code := args[0].(*big.Int)
		for i, a := range c.amenities {
			if a.Cmp(code) == 0 {
				c.amenities[i] = new(big.Int)
				return nil, nil
			}
		}
		return nil, revert("amenity not found")
	case "addImage":
		c.images = append(c.images, args[0].(string))
		return nil, nil
	case "removeImage":
		i := args[0].(*big.Int)
		if !i.IsUint64() || i.Uint64() >= uint64(len(c.images)) {
			return nil, revert("image index out of range")
		}
		c.images[i.Uint64()] = ""
		return nil, nil
	}
	return nil, revert("category.%s not emulated", method)
}

func (f *frame) unit(from, self common.Address, method string, args []any) ([]any, error) {
	u := f.w.units[self]
	if !contracts.ABI(contracts.Unit).Methods[method].IsConstant() && from != u.owner {
		return nil, revert("unit.%s: sender %s is not the owner", method, from.Hex())
	}
	dayRange := func(from, count *big.Int) (int64, uint64, error) {
		if !from.IsInt64() || !count.IsUint64() || count.Uint64() == 0 || count.Uint64() > maxDays {
			return 0, 0, revert("invalid day range")
		}
		return from.Int64(), count.Uint64(), nil
	}

	switch method {
	case "owner":
		return []any{u.owner}, nil
	case "active":
		return []any{u.active}, nil
	case "unitType":
		return []any{u.unitType}, nil
	case "defaultPrice":
		return []any{u.defaultPrice}, nil
	case "defaultLifPrice":
		return []any{u.defaultLifPrice}, nil
	case "currencyCode":
		return []any{u.currencyCode}, nil
	case "getReservation":
		day := args[0].(*big.Int)
		r := u.reservation(day.Int64())
		return []any{cloneBig(r.specialPrice), cloneBig(r.specialLifPrice), r.bookedBy}, nil
	case "getCost", "getLifCost":
		day, count, err := dayRange(args[0].(*big.Int), args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		return []any{u.cost(day, count, method == "getLifCost")}, nil

	case "setActive":
		u.active = args[0].(bool)
		return nil, nil
	case "setDefaultPrice":
		u.defaultPrice = args[0].(*big.Int)
		return nil, nil
	case "setDefaultLifPrice":
		u.defaultLifPrice = args[0].(*big.Int)
		return nil, nil
	case "setCurrencyCode":
		u.currencyCode = args[0].([8]byte)
		return nil, nil
	case "setSpecialPrice", "setSpecialLifPrice":
		price := args[0].(*big.Int)
		day, count, err := dayRange(args[1].(*big.Int), args[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		for d := day; d < day+int64(count); d++ {
			r := u.reservation(d)
			if method == "setSpecialPrice" {
				r.specialPrice = cloneBig(price)
			} else {
				r.specialLifPrice = cloneBig(price)
			}
			u.calendar[d] = r
		}
		return nil, nil
	case "book":
		guest := args[0].(common.Address)
		day, count, err := dayRange(args[1].(*big.Int), args[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		if !u.active {
			return []any{false}, nil
		}
		for d := day; d < day+int64(count); d++ {
			if u.reservation(d).bookedBy != (common.Address{}) {
				return []any{false}, nil
			}
		}
		for d := day; d < day+int64(count); d++ {
			r := u.reservation(d)
			r.bookedBy = guest
			u.calendar[d] = r
		}
		return []any{true}, nil
	}
	return nil, revert("unit.%s not emulated", method)
}

func (f *frame) token(from, self common.Address, method string, args []any) ([]any, error) {
	t := f.w.token
	transfer := func(src, dst common.Address, value *big.Int) error {
		if f.w.balance(src).Cmp(value) < 0 {
			return revert("insufficient token balance")
		}
		t.balances[src] = new(big.Int).Sub(f.w.balance(src), value)
		t.balances[dst] = new(big.Int).Add(f.w.balance(dst), value)
		f.emit(contracts.Token, self, "Transfer", src, dst, value)
		return nil
	}
	approve := func(owner, spender common.Address, value *big.Int) {
		if t.allowances[owner] == nil {
			t.allowances[owner] = make(map[common.Address]*big.Int)
		}
		t.allowances[owner][spender] = cloneBig(value)
		f.emit(contracts.Token, self, "Approval", owner, spender, value)
	}

	switch method {
	case "name":
		return []any{"Lif"}, nil
	case "symbol":
		return []any{"LIF"}, nil
	case "decimals":
		return []any{uint8(18)}, nil
	case "totalSupply":
		return []any{cloneBig(t.totalSupply)}, nil
	case "balanceOf":
		return []any{cloneBig(f.w.balance(args[0].(common.Address)))}, nil
	case "allowance":
		return []any{cloneBig(f.w.allowance(args[0].(common.Address), args[1].(common.Address)))}, nil
	case "approve":
		approve(from, args[0].(common.Address), args[1].(*big.Int))
		return []any{true}, nil
	case "transfer":
		if err := transfer(from, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return []any{true}, nil
	case "transferFrom":
		src, dst, value := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		allowed := f.w.allowance(src, from)
		if allowed.Cmp(value) < 0 {
			return nil, revert("allowance exceeded")
		}
		if err := transfer(src, dst, value); err != nil {
			return nil, err
		}
		if value.Sign() > 0 {
			t.allowances[src][from] = new(big.Int).Sub(allowed, value)
		}
		return []any{true}, nil
	case "approveData":
		spender := args[0].(common.Address)
		approve(from, spender, args[1].(*big.Int))
		if _, err := f.call(self, spender, args[2].([]byte)); err != nil {
			return nil, err
		}
		return []any{true}, nil
	}
	return nil, revert("token.%s not emulated", method)
}

func (f *frame) tokenAddress() common.Address {
	for addr, k := range f.w.kinds {
		if k == contracts.Token {
			return addr
		}
	}
	return common.Address{}
}

func containsAddress(list []common.Address, a common.Address) bool {
	if a == (common.Address{}) {
		return false
	}
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
