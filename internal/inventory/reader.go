// Package inventory reads property object graphs from the ledger and
// materializes them as snapshots.
package inventory

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/pkg/types"
)

// Config throttles reads against the RPC provider.
type Config struct {
	// RequestsPerSecond limits calls; zero means unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Reader walks ledger objects. It holds no state between calls.
type Reader struct {
	caller   ethereum.ContractCaller
	registry common.Address
}

// NewReader creates a reader for the registry at registry.
func NewReader(caller ethereum.ContractCaller, registry common.Address, cfg Config) *Reader {
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		caller = &throttledCaller{
			inner:   caller,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		}
	}
	return &Reader{caller: caller, registry: registry}
}

type throttledCaller struct {
	inner   ethereum.ContractCaller
	limiter *rate.Limiter
}

func (t *throttledCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.CallContract(ctx, msg, block)
}

type readOptions struct {
	calendar *types.DayRange
}

// Option adjusts what a snapshot includes.
type Option func(*readOptions)

// WithCalendar includes calendar overrides and bookings for days in r.
func WithCalendar(r types.DayRange) Option {
	return func(o *readOptions) {
		o.calendar = &r
	}
}

func (r *Reader) bind(kind contracts.Kind, addr common.Address) *contracts.Instance {
	return contracts.Bind(kind, addr, r.caller)
}

// PropertiesOf lists the properties manager has registered, in delegation
// index order.
func (r *Reader) PropertiesOf(ctx context.Context, manager common.Address) ([]common.Address, error) {
	list, err := contracts.Read[[]common.Address](ctx, r.bind(contracts.Registry, r.registry), "getHotelsByManager", manager)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of %s: %w", manager.Hex(), err)
	}
	return nonZeroAddresses(list), nil
}

// Properties lists every registered property.
func (r *Reader) Properties(ctx context.Context) ([]common.Address, error) {
	list, err := contracts.Read[[]common.Address](ctx, r.bind(contracts.Registry, r.registry), "getHotels")
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return nonZeroAddresses(list), nil
}

// TokenAddress returns the payment token the registry uses.
func (r *Reader) TokenAddress(ctx context.Context) (common.Address, error) {
	return contracts.Read[common.Address](ctx, r.bind(contracts.Registry, r.registry), "LifToken")
}

// TokenBalance reads owner's balance of token in base units.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	balance, err := contracts.Read[*big.Int](ctx, r.bind(contracts.Token, token), "balanceOf", owner)
	if err != nil {
		return nil, r.fail("token", token, "balanceOf", err)
	}
	return balance, nil
}

// Property reads the full object graph of a property.
func (r *Reader) Property(ctx context.Context, addr common.Address, opts ...Option) (*types.PropertySnapshot, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := r.bind(contracts.Property, addr)
	snap := &types.PropertySnapshot{
		Address:    addr,
		Categories: make(map[string]*types.CategorySnapshot),
		Units:      make(map[common.Address]*types.UnitSnapshot),
	}

	var err error
	strs := []struct {
		method string
		dst    *string
	}{
		{"name", &snap.Name},
		{"description", &snap.Description},
		{"lineOne", &snap.PostalAddress.LineOne},
		{"lineTwo", &snap.PostalAddress.LineTwo},
		{"zip", &snap.PostalAddress.Zip},
		{"country", &snap.PostalAddress.Country},
	}
	for _, s := range strs {
		if *s.dst, err = contracts.Read[string](ctx, p, s.method); err != nil {
			return nil, r.fail("property", addr, s.method, err)
		}
	}
	if snap.Manager, err = contracts.Read[common.Address](ctx, p, "manager"); err != nil {
		return nil, r.fail("property", addr, "manager", err)
	}
	if snap.RequireConfirmation, err = contracts.Read[bool](ctx, p, "waitConfirmation"); err != nil {
		return nil, r.fail("property", addr, "waitConfirmation", err)
	}
	created, err := contracts.Read[*big.Int](ctx, p, "created")
	if err != nil {
		return nil, r.fail("property", addr, "created", err)
	}
	snap.Created = created.Uint64()

	if snap.Location, err = r.location(ctx, p); err != nil {
		return nil, r.fail("property", addr, "location", err)
	}
	if snap.Images, err = r.images(ctx, p); err != nil {
		return nil, r.fail("property", addr, "images", err)
	}

	names, err := contracts.Read[[][32]byte](ctx, p, "getUnitTypeNames")
	if err != nil {
		return nil, r.fail("property", addr, "getUnitTypeNames", err)
	}
	for _, name := range names {
		if codec.IsZeroName(name) {
			continue
		}
		catAddr, err := contracts.Read[common.Address](ctx, p, "getUnitType", name)
		if err != nil {
			return nil, r.fail("property", addr, "getUnitType", err)
		}
		if codec.IsZeroAddress(catAddr) {
			continue
		}
		cat, err := r.Category(ctx, catAddr)
		if err != nil {
			return nil, err
		}
		snap.Categories[cat.Name] = cat
	}

	units, err := r.units(ctx, p)
	if err != nil {
		return nil, r.fail("property", addr, "units", err)
	}
	for _, unitAddr := range units {
		unit, err := r.Unit(ctx, unitAddr)
		if err != nil {
			return nil, err
		}
		if o.calendar != nil {
			if unit.Calendar, err = r.Calendar(ctx, unitAddr, *o.calendar); err != nil {
				return nil, err
			}
		}
		snap.Units[unitAddr] = unit
	}

	logging.Debug("property snapshot read",
		logging.Property(addr),
		"categories", len(snap.Categories),
		"units", len(snap.Units),
	)
	return snap, nil
}

func (r *Reader) location(ctx context.Context, p *contracts.Instance) (*types.Location, error) {
	tz, err := contracts.Read[*big.Int](ctx, p, "timezone")
	if err != nil {
		return nil, err
	}
	lat, err := contracts.Read[*big.Int](ctx, p, "latitude")
	if err != nil {
		return nil, err
	}
	long, err := contracts.Read[*big.Int](ctx, p, "longitude")
	if err != nil {
		return nil, err
	}
	if codec.IsZeroBig(tz) && codec.IsZeroBig(lat) && codec.IsZeroBig(long) {
		return nil, nil
	}
	latitude, longitude := codec.DecodeLocation(lat.Uint64(), long.Uint64())
	return &types.Location{Timezone: tz.Uint64(), Latitude: latitude, Longitude: longitude}, nil
}

// images reads an image list, dropping removed (empty) entries.
func (r *Reader) images(ctx context.Context, i *contracts.Instance) ([]string, error) {
	n, err := contracts.Read[*big.Int](ctx, i, "getImagesLength")
	if err != nil {
		return nil, err
	}
	var out []string
	for idx := int64(0); idx < n.Int64(); idx++ {
		url, err := contracts.Read[string](ctx, i, "images", big.NewInt(idx))
		if err != nil {
			return nil, err
		}
		if url != "" {
			out = append(out, url)
		}
	}
	return out, nil
}

func (r *Reader) units(ctx context.Context, p *contracts.Instance) ([]common.Address, error) {
	n, err := contracts.Read[*big.Int](ctx, p, "getUnitsLength")
	if err != nil {
		return nil, err
	}
	var out []common.Address
	for idx := int64(0); idx < n.Int64(); idx++ {
		addr, err := contracts.Read[common.Address](ctx, p, "units", big.NewInt(idx))
		if err != nil {
			return nil, err
		}
		if !codec.IsZeroAddress(addr) {
			out = append(out, addr)
		}
	}
	return out, nil
}

// Category reads one inventory category.
func (r *Reader) Category(ctx context.Context, addr common.Address) (*types.CategorySnapshot, error) {
	c := r.bind(contracts.Category, addr)
	name, err := contracts.Read[[32]byte](ctx, c, "unitType")
	if err != nil {
		return nil, r.fail("category", addr, "unitType", err)
	}

	var info struct {
		Description string
		MinGuests   *big.Int
		MaxGuests   *big.Int
		Price       string
	}
	if err := c.CallInto(ctx, &info, "getInfo"); err != nil {
		return nil, r.fail("category", addr, "getInfo", err)
	}
	amenities, err := contracts.Read[[]*big.Int](ctx, c, "getAmenities")
	if err != nil {
		return nil, r.fail("category", addr, "getAmenities", err)
	}
	images, err := r.images(ctx, c)
	if err != nil {
		return nil, r.fail("category", addr, "images", err)
	}

	snap := &types.CategorySnapshot{
		Address:     addr,
		Name:        codec.DecodeName(name),
		Description: info.Description,
		Price:       info.Price,
		Images:      images,
	}
	if info.MinGuests != nil {
		snap.MinGuests = info.MinGuests.Uint64()
	}
	if info.MaxGuests != nil {
		snap.MaxGuests = info.MaxGuests.Uint64()
	}
	for _, a := range amenities {
		if !codec.IsZeroBig(a) {
			snap.Amenities = append(snap.Amenities, a.Uint64())
		}
	}
	return snap, nil
}

// Unit reads one unit without its calendar.
func (r *Reader) Unit(ctx context.Context, addr common.Address) (*types.UnitSnapshot, error) {
	u := r.bind(contracts.Unit, addr)
	snap := &types.UnitSnapshot{Address: addr}

	name, err := contracts.Read[[32]byte](ctx, u, "unitType")
	if err != nil {
		return nil, r.fail("unit", addr, "unitType", err)
	}
	snap.Category = codec.DecodeName(name)
	if snap.Active, err = contracts.Read[bool](ctx, u, "active"); err != nil {
		return nil, r.fail("unit", addr, "active", err)
	}
	if snap.DefaultPrice, err = contracts.Read[*big.Int](ctx, u, "defaultPrice"); err != nil {
		return nil, r.fail("unit", addr, "defaultPrice", err)
	}
	if snap.DefaultTokenPrice, err = contracts.Read[*big.Int](ctx, u, "defaultLifPrice"); err != nil {
		return nil, r.fail("unit", addr, "defaultLifPrice", err)
	}
	code, err := contracts.Read[[8]byte](ctx, u, "currencyCode")
	if err != nil {
		return nil, r.fail("unit", addr, "currencyCode", err)
	}
	snap.CurrencyCode = codec.DecodeCurrency(code)
	return snap, nil
}

// Reservation reads the calendar cell of unit for day.
func (r *Reader) Reservation(ctx context.Context, unit common.Address, day int64) (types.Reservation, error) {
	var out struct {
		SpecialPrice    *big.Int
		SpecialLifPrice *big.Int
		BookedBy        common.Address
	}
	if err := r.bind(contracts.Unit, unit).CallInto(ctx, &out, "getReservation", big.NewInt(day)); err != nil {
		return types.Reservation{}, r.fail("unit", unit, "getReservation", err)
	}
	return types.Reservation{
		Day:               day,
		SpecialPrice:      codec.NonZero(out.SpecialPrice),
		SpecialTokenPrice: codec.NonZero(out.SpecialLifPrice),
		BookedBy:          out.BookedBy,
	}, nil
}

// Calendar reads every day of rng and keeps the days that carry a price
// override or a booking.
func (r *Reader) Calendar(ctx context.Context, unit common.Address, rng types.DayRange) (map[int64]types.Reservation, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	out := make(map[int64]types.Reservation)
	for _, day := range rng.Days() {
		res, err := r.Reservation(ctx, unit, day)
		if err != nil {
			return nil, err
		}
		if res.Booked() || res.SpecialPrice != nil || res.SpecialTokenPrice != nil {
			out[day] = res
		}
	}
	return out, nil
}

// CategoryAddress resolves a category name on a property.
func (r *Reader) CategoryAddress(ctx context.Context, property common.Address, name string) (common.Address, error) {
	encoded, err := codec.EncodeName(name)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := contracts.Read[common.Address](ctx, r.bind(contracts.Property, property), "getUnitType", encoded)
	if err != nil {
		return common.Address{}, r.fail("property", property, "getUnitType", err)
	}
	if codec.IsZeroAddress(addr) {
		return common.Address{}, errors.Wrapf(types.ErrNotFound, "category %q on %s", name, property.Hex())
	}
	return addr, nil
}

// CategoryIndex returns the position of name in the property's category list.
func (r *Reader) CategoryIndex(ctx context.Context, property common.Address, name string) (uint64, error) {
	encoded, err := codec.EncodeName(name)
	if err != nil {
		return 0, err
	}
	names, err := contracts.Read[[][32]byte](ctx, r.bind(contracts.Property, property), "getUnitTypeNames")
	if err != nil {
		return 0, r.fail("property", property, "getUnitTypeNames", err)
	}
	for i, n := range names {
		if n == encoded {
			return uint64(i), nil
		}
	}
	return 0, errors.Wrapf(types.ErrNotFound, "category %q on %s", name, property.Hex())
}

// RequiresConfirmation reads the property's confirmation flag.
func (r *Reader) RequiresConfirmation(ctx context.Context, property common.Address) (bool, error) {
	wait, err := contracts.Read[bool](ctx, r.bind(contracts.Property, property), "waitConfirmation")
	if err != nil {
		return false, r.fail("property", property, "waitConfirmation", err)
	}
	return wait, nil
}

func (r *Reader) fail(kind string, addr common.Address, method string, err error) error {
	return fmt.Errorf("failed to read %s.%s at %s: %w", kind, method, addr.Hex(), err)
}

func nonZeroAddresses(list []common.Address) []common.Address {
	out := make([]common.Address, 0, len(list))
	for _, a := range list {
		if !codec.IsZeroAddress(a) {
			out = append(out, a)
		}
	}
	return out
}
