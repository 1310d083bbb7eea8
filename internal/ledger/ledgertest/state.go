package ledgertest

import (
	"maps"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/internal/contracts"
)

type reservation struct {
	specialPrice    *big.Int
	specialLifPrice *big.Int
	bookedBy        common.Address
}

type pendingCall struct {
	callData []byte
	sender   common.Address
	success  bool
}

type propertyState struct {
	owner            common.Address
	manager          common.Address
	name             string
	description      string
	lineOne          string
	lineTwo          string
	zip              string
	country          string
	created          uint64
	timezone         *big.Int
	latitude         *big.Int
	longitude        *big.Int
	waitConfirmation bool
	images           []string
	unitTypeNames    [][32]byte
	unitTypes        map[[32]byte]common.Address
	units            []common.Address
	pending          map[common.Hash]*pendingCall
}

type categoryState struct {
	owner       common.Address
	unitType    [32]byte
	description string
	minGuests   *big.Int
	maxGuests   *big.Int
	price       string
	amenities   []*big.Int
	images      []string
}

type unitState struct {
	owner           common.Address
	unitType        [32]byte
	active          bool
	defaultPrice    *big.Int
	defaultLifPrice *big.Int
	currencyCode    [8]byte
	calendar        map[int64]*reservation
}

type tokenState struct {
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	totalSupply *big.Int
}

type registryState struct {
	hotels    []common.Address
	byManager map[common.Address][]common.Address
}

// world is the full emulated contract state. Transactions run against a
// clone that replaces the original only on success.
type world struct {
	kinds      map[common.Address]contracts.Kind
	creations  map[common.Address]uint64
	registry   *registryState
	token      *tokenState
	properties map[common.Address]*propertyState
	categories map[common.Address]*categoryState
	units      map[common.Address]*unitState
}

func newWorld(registry, token common.Address) *world {
	return &world{
		kinds: map[common.Address]contracts.Kind{
			registry: contracts.Registry,
			token:    contracts.Token,
		},
		creations: make(map[common.Address]uint64),
		registry: &registryState{
			byManager: make(map[common.Address][]common.Address),
		},
		token: &tokenState{
			balances:    make(map[common.Address]*big.Int),
			allowances:  make(map[common.Address]map[common.Address]*big.Int),
			totalSupply: new(big.Int),
		},
		properties: make(map[common.Address]*propertyState),
		categories: make(map[common.Address]*categoryState),
		units:      make(map[common.Address]*unitState),
	}
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneBigs(vs []*big.Int) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = cloneBig(v)
	}
	return out
}

func (w *world) clone() *world {
	c := &world{
		kinds:      maps.Clone(w.kinds),
		creations:  maps.Clone(w.creations),
		properties: make(map[common.Address]*propertyState, len(w.properties)),
		categories: make(map[common.Address]*categoryState, len(w.categories)),
		units:      make(map[common.Address]*unitState, len(w.units)),
	}

	c.registry = &registryState{
		hotels:    slices.Clone(w.registry.hotels),
		byManager: make(map[common.Address][]common.Address, len(w.registry.byManager)),
	}
	for m, list := range w.registry.byManager {
		c.registry.byManager[m] = slices.Clone(list)
	}

	c.token = &tokenState{
		balances:    make(map[common.Address]*big.Int, len(w.token.balances)),
		allowances:  make(map[common.Address]map[common.Address]*big.Int, len(w.token.allowances)),
		totalSupply: cloneBig(w.token.totalSupply),
	}
	for a, b := range w.token.balances {
		c.token.balances[a] = cloneBig(b)
	}
	for owner, spenders := range w.token.allowances {
		m := make(map[common.Address]*big.Int, len(spenders))
		for s, v := range spenders {
			m[s] = cloneBig(v)
		}
		c.token.allowances[owner] = m
	}

	for a, p := range w.properties {
		cp := *p
		cp.timezone = cloneBig(p.timezone)
		cp.latitude = cloneBig(p.latitude)
		cp.longitude = cloneBig(p.longitude)
		cp.images = slices.Clone(p.images)
		cp.unitTypeNames = slices.Clone(p.unitTypeNames)
		cp.unitTypes = maps.Clone(p.unitTypes)
		cp.units = slices.Clone(p.units)
		cp.pending = make(map[common.Hash]*pendingCall, len(p.pending))
		for h, pc := range p.pending {
			cpc := *pc
			cp.pending[h] = &cpc
		}
		c.properties[a] = &cp
	}
	for a, cat := range w.categories {
		cc := *cat
		cc.minGuests = cloneBig(cat.minGuests)
		cc.maxGuests = cloneBig(cat.maxGuests)
		cc.amenities = cloneBigs(cat.amenities)
		cc.images = slices.Clone(cat.images)
		c.categories[a] = &cc
	}
	for a, u := range w.units {
		cu := *u
		cu.defaultPrice = cloneBig(u.defaultPrice)
		cu.defaultLifPrice = cloneBig(u.defaultLifPrice)
		cu.calendar = make(map[int64]*reservation, len(u.calendar))
		for d, r := range u.calendar {
			cu.calendar[d] = &reservation{
				specialPrice:    cloneBig(r.specialPrice),
				specialLifPrice: cloneBig(r.specialLifPrice),
				bookedBy:        r.bookedBy,
			}
		}
		c.units[a] = &cu
	}
	return c
}

func (w *world) balance(a common.Address) *big.Int {
	if b, ok := w.token.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (w *world) allowance(owner, spender common.Address) *big.Int {
	if v, ok := w.token.allowances[owner][spender]; ok {
		return v
	}
	return new(big.Int)
}

func (u *unitState) reservation(day int64) *reservation {
	if r, ok := u.calendar[day]; ok {
		return r
	}
	return &reservation{specialPrice: new(big.Int), specialLifPrice: new(big.Int)}
}

func (u *unitState) cost(fromDay int64, days uint64, token bool) *big.Int {
	total := new(big.Int)
	for d := fromDay; d < fromDay+int64(days); d++ {
		r := u.reservation(d)
		price, def := r.specialPrice, u.defaultPrice
		if token {
			price, def = r.specialLifPrice, u.defaultLifPrice
		}
		if price != nil && price.Sign() > 0 {
			total.Add(total, price)
		} else if def != nil {
			total.Add(total, def)
		}
	}
	return total
}
