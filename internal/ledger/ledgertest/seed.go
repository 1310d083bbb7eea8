package ledgertest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/contracts"
)

// PropertySeed describes a property written straight into ledger state,
// without transactions or events.
type PropertySeed struct {
	Name                string
	Description         string
	RequireConfirmation bool
	Images              []string
	Categories          []CategorySeed
}

// CategorySeed describes a category and its units.
type CategorySeed struct {
	Name        string
	Description string
	MinGuests   uint64
	MaxGuests   uint64
	Price       string
	Amenities   []uint64
	Images      []string
	Units       []UnitSeed
}

// UnitSeed describes a unit.
type UnitSeed struct {
	Active            bool
	DefaultPrice      *big.Int
	DefaultTokenPrice *big.Int
	Currency          string
}

// Seeded holds the addresses created by SeedProperty.
type Seeded struct {
	Address    common.Address
	Categories map[string]common.Address
	Units      []common.Address
}

// SeedProperty registers a property for manager with its categories and units.
func (c *Chain) SeedProperty(manager common.Address, seed PropertySeed) *Seeded {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.state

	nonce := w.creations[RegistryAddress]
	w.creations[RegistryAddress] = nonce + 1
	addr := crypto.CreateAddress(RegistryAddress, nonce)
	p := &propertyState{
		owner:            RegistryAddress,
		manager:          manager,
		name:             seed.Name,
		description:      seed.Description,
		created:          c.head,
		timezone:         new(big.Int),
		latitude:         new(big.Int),
		longitude:        new(big.Int),
		waitConfirmation: seed.RequireConfirmation,
		images:           append([]string(nil), seed.Images...),
		unitTypes:        make(map[[32]byte]common.Address),
		pending:          make(map[common.Hash]*pendingCall),
	}
	w.kinds[addr] = contracts.Property
	w.properties[addr] = p
	w.registry.hotels = append(w.registry.hotels, addr)
	w.registry.byManager[manager] = append(w.registry.byManager[manager], addr)

	out := &Seeded{Address: addr, Categories: make(map[string]common.Address)}
	for _, cs := range seed.Categories {
		name := mustName(cs.Name)
		catAddr := c.seedAddress(manager)
		cat := &categoryState{
			owner:       addr,
			unitType:    name,
			description: cs.Description,
			minGuests:   new(big.Int).SetUint64(cs.MinGuests),
			maxGuests:   new(big.Int).SetUint64(cs.MaxGuests),
			price:       cs.Price,
			images:      append([]string(nil), cs.Images...),
		}
		for _, a := range cs.Amenities {
			cat.amenities = append(cat.amenities, new(big.Int).SetUint64(a))
		}
		w.kinds[catAddr] = contracts.Category
		w.categories[catAddr] = cat
		p.unitTypes[name] = catAddr
		p.unitTypeNames = append(p.unitTypeNames, name)
		out.Categories[cs.Name] = catAddr

		for _, us := range cs.Units {
			unitAddr := c.seedAddress(manager)
			u := &unitState{
				owner:           addr,
				unitType:        name,
				active:          us.Active,
				defaultPrice:    orZero(us.DefaultPrice),
				defaultLifPrice: orZero(us.DefaultTokenPrice),
				calendar:        make(map[int64]*reservation),
			}
			if us.Currency != "" {
				code, err := codec.EncodeCurrency(us.Currency)
				if err != nil {
					panic("ledgertest: " + err.Error())
				}
				u.currencyCode = code
			}
			w.kinds[unitAddr] = contracts.Unit
			w.units[unitAddr] = u
			p.units = append(p.units, unitAddr)
			out.Units = append(out.Units, unitAddr)
		}
	}
	return out
}

// SeedReservation writes one calendar cell. Nil prices leave the default in effect.
func (c *Chain) SeedReservation(unit common.Address, day int64, price, tokenPrice *big.Int, bookedBy common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.state.units[unit]
	if !ok {
		panic("ledgertest: unknown unit " + unit.Hex())
	}
	r := u.reservation(day)
	if price != nil {
		r.specialPrice = cloneBig(price)
	}
	if tokenPrice != nil {
		r.specialLifPrice = cloneBig(tokenPrice)
	}
	r.bookedBy = bookedBy
	u.calendar[day] = r
}

// seedAddress derives a creation address as if deployer had sent a
// transaction; the deployer's nonce advances.
func (c *Chain) seedAddress(deployer common.Address) common.Address {
	nonce := c.nonces[deployer]
	c.nonces[deployer] = nonce + 1
	return crypto.CreateAddress(deployer, nonce)
}

func mustName(name string) [32]byte {
	b, err := codec.EncodeName(name)
	if err != nil {
		panic("ledgertest: " + err.Error())
	}
	return b
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
