// Package management is the manager-facing surface over the ledger: property,
// category and unit CRUD, all routed through the registry as delegated calls.
package management

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/pkg/types"
)

var registryEvents = contracts.NewDecoder(contracts.Registry)

// ErrNoArtifact is returned when a deploy is requested without creation code.
var ErrNoArtifact = errors.New("no creation code configured")

// Deps are the collaborators a Facade drives.
type Deps struct {
	Encoder    *ledger.Encoder
	Executor   *ledger.Executor
	Reader     *inventory.Reader
	Reconciler *events.Reconciler
	// Cache is optional. Reads fill it and mutations invalidate the property.
	Cache *inventory.Cache
	// CategoryArtifact and UnitArtifact are needed to add categories and units.
	CategoryArtifact *contracts.Artifact
	UnitArtifact     *contracts.Artifact
}

// Facade acts for one manager account.
type Facade struct {
	manager ledger.Signer
	Deps
}

// New creates a facade that signs as manager.
func New(manager ledger.Signer, deps Deps) *Facade {
	return &Facade{manager: manager, Deps: deps}
}

// Manager returns the managing account.
func (f *Facade) Manager() common.Address {
	return f.manager.Address()
}

// CategoryInfo is the editable description of a category.
type CategoryInfo struct {
	Description string
	MinGuests   uint64
	MaxGuests   uint64
	// Price is free text, e.g. "90 EUR".
	Price string
}

// Properties

// CreateProperty registers a new property and returns its address.
func (f *Facade) CreateProperty(ctx context.Context, name, description string) (common.Address, error) {
	call, err := f.Encoder.EncodeDirect(contracts.Registry, f.Encoder.Registry(), "registerHotel", name, description)
	if err != nil {
		return common.Address{}, err
	}
	receipt, err := f.Executor.Submit(ctx, f.manager, call)
	if err != nil {
		return common.Address{}, err
	}
	for _, l := range receipt.Logs {
		ev, err := registryEvents.DecodeLog(l)
		if err != nil || ev.Name != "HotelRegistered" {
			continue
		}
		if addr, ok := ev.Fields["hotel"].(common.Address); ok {
			logging.Info("property created", logging.Property(addr), "name", name)
			return addr, nil
		}
	}
	return common.Address{}, &types.CallError{Op: "create property", TxHash: receipt.TxHash, Err: errors.Wrap(types.ErrDecode, "no HotelRegistered event in receipt")}
}

// RemoveProperty unregisters property from the registry.
func (f *Facade) RemoveProperty(ctx context.Context, property common.Address) (*ledger.Receipt, error) {
	index, err := f.Encoder.DelegationIndex(ctx, f.manager.Address(), property)
	if err != nil {
		return nil, err
	}
	call, err := f.Encoder.EncodeDirect(contracts.Registry, f.Encoder.Registry(), "removeHotel", new(big.Int).SetUint64(index))
	if err != nil {
		return nil, err
	}
	receipt, err := f.Executor.Submit(ctx, f.manager, call)
	f.invalidate(property)
	return receipt, err
}

// Properties reads every property of the manager.
func (f *Facade) Properties(ctx context.Context) ([]*types.PropertySnapshot, error) {
	addrs, err := f.Reader.PropertiesOf(ctx, f.manager.Address())
	if err != nil {
		return nil, err
	}
	out := make([]*types.PropertySnapshot, 0, len(addrs))
	for _, addr := range addrs {
		snap, err := f.Property(ctx, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Property reads one property, from the cache when possible. Calendar
// reads always go to the ledger.
func (f *Facade) Property(ctx context.Context, property common.Address, opts ...inventory.Option) (*types.PropertySnapshot, error) {
	cacheable := f.Cache != nil && len(opts) == 0
	if cacheable {
		if snap, ok := f.Cache.Get(property); ok {
			return snap, nil
		}
	}
	snap, err := f.Reader.Property(ctx, property, opts...)
	if err != nil {
		return nil, err
	}
	if cacheable {
		f.Cache.Put(snap)
	}
	return snap, nil
}

// SetRequireConfirmation toggles whether bookings wait for the manager.
func (f *Facade) SetRequireConfirmation(ctx context.Context, property common.Address, wait bool) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToProperty(), "changeConfirmation", wait)
}

// ChangeInfo edits the name and description.
func (f *Facade) ChangeInfo(ctx context.Context, property common.Address, name, description string) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToProperty(), "editInfo", name, description)
}

// ChangeAddress edits the postal address. The country is stored as an
// ISO 3166 region code.
func (f *Facade) ChangeAddress(ctx context.Context, property common.Address, addr types.PostalAddress) (*ledger.Receipt, error) {
	country, err := codec.NormalizeCountry(addr.Country)
	if err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToProperty(), "editAddress", addr.LineOne, addr.LineTwo, addr.Zip, country)
}

// ChangeLocation edits the timezone and GPS position.
func (f *Facade) ChangeLocation(ctx context.Context, property common.Address, loc types.Location) (*ledger.Receipt, error) {
	lat, long, err := codec.EncodeLocation(loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToProperty(), "editLocation",
		new(big.Int).SetUint64(loc.Timezone), new(big.Int).SetUint64(long), new(big.Int).SetUint64(lat))
}

// AddPropertyImage appends an image URL.
func (f *Facade) AddPropertyImage(ctx context.Context, property common.Address, url string) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToProperty(), "addImage", url)
}

// RemovePropertyImage clears the image at index. Later indices do not move.
func (f *Facade) RemovePropertyImage(ctx context.Context, property common.Address, index uint64) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToProperty(), "removeImage", new(big.Int).SetUint64(index))
}

// Bookings

// ConfirmBooking executes the pending request identified by contentHash.
func (f *Facade) ConfirmBooking(ctx context.Context, property common.Address, contentHash common.Hash) (*ledger.Receipt, error) {
	receipt, err := f.delegate(ctx, property, ledger.ToProperty(), "continueCall", contentHash)
	if err != nil {
		var ce *types.CallError
		if errors.As(err, &ce) && ce.ContentHash == (common.Hash{}) {
			ce.ContentHash = contentHash
		}
		return receipt, err
	}
	logging.Info("booking confirmed", logging.Property(property), logging.ContentHash(contentHash), logging.TxHash(receipt.TxHash))
	return receipt, nil
}

// Bookings lists confirmed bookings of the manager's properties from block from.
func (f *Facade) Bookings(ctx context.Context, from uint64) ([]types.Booking, error) {
	addrs, err := f.Reader.PropertiesOf(ctx, f.manager.Address())
	if err != nil {
		return nil, err
	}
	return f.Reconciler.ConfirmedBookings(ctx, addrs, from)
}

// Requests lists requests of the manager's properties awaiting confirmation.
func (f *Facade) Requests(ctx context.Context, from uint64) ([]types.PendingRequest, error) {
	addrs, err := f.Reader.PropertiesOf(ctx, f.manager.Address())
	if err != nil {
		return nil, err
	}
	return f.Reconciler.OutstandingRequests(ctx, addrs, from)
}

// Categories

// AddCategory deploys a category named name and registers it on property.
func (f *Facade) AddCategory(ctx context.Context, property common.Address, name string) (common.Address, error) {
	addr, err := f.deploy(ctx, f.CategoryArtifact, property, name)
	if err != nil {
		return common.Address{}, err
	}
	if _, err := f.delegate(ctx, property, ledger.ToProperty(), "addUnitType", addr); err != nil {
		return addr, err
	}
	logging.Info("category added", logging.Property(property), "category", name, "address", addr.Hex())
	return addr, nil
}

// RemoveCategory unregisters the category named name.
func (f *Facade) RemoveCategory(ctx context.Context, property common.Address, name string) (*ledger.Receipt, error) {
	encoded, err := codec.EncodeName(name)
	if err != nil {
		return nil, err
	}
	index, err := f.Reader.CategoryIndex(ctx, property, name)
	if err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToProperty(), "removeUnitType", encoded, new(big.Int).SetUint64(index))
}

// EditCategory replaces a category's description, occupancy and price text.
func (f *Facade) EditCategory(ctx context.Context, property common.Address, name string, info CategoryInfo) (*ledger.Receipt, error) {
	if info.MaxGuests > 0 && info.MinGuests > info.MaxGuests {
		return nil, errors.Wrapf(types.ErrEncoding, "min guests %d above max guests %d", info.MinGuests, info.MaxGuests)
	}
	return f.delegate(ctx, property, ledger.ToCategory(name), "edit",
		info.Description, new(big.Int).SetUint64(info.MinGuests), new(big.Int).SetUint64(info.MaxGuests), info.Price)
}

// AddAmenity adds an amenity code to a category.
func (f *Facade) AddAmenity(ctx context.Context, property common.Address, category string, amenity uint64) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToCategory(category), "addAmenity", new(big.Int).SetUint64(amenity))
}

// RemoveAmenity removes an amenity code from a category.
func (f *Facade) RemoveAmenity(ctx context.Context, property common.Address, category string, amenity uint64) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToCategory(category), "removeAmenity", new(big.Int).SetUint64(amenity))
}

// AddCategoryImage appends an image URL to a category.
func (f *Facade) AddCategoryImage(ctx context.Context, property common.Address, category, url string) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToCategory(category), "addImage", url)
}

// RemoveCategoryImage clears a category image.
func (f *Facade) RemoveCategoryImage(ctx context.Context, property common.Address, category string, index uint64) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToCategory(category), "removeImage", new(big.Int).SetUint64(index))
}

// Units

// AddUnit deploys a unit of category and registers it on property.
func (f *Facade) AddUnit(ctx context.Context, property common.Address, category string) (common.Address, error) {
	if _, err := f.Reader.CategoryAddress(ctx, property, category); err != nil {
		return common.Address{}, err
	}
	addr, err := f.deploy(ctx, f.UnitArtifact, property, category)
	if err != nil {
		return common.Address{}, err
	}
	if _, err := f.delegate(ctx, property, ledger.ToProperty(), "addUnit", addr); err != nil {
		return addr, err
	}
	logging.Info("unit added", logging.Property(property), "category", category, logging.Unit(addr))
	return addr, nil
}

// RemoveUnit unregisters unit from property.
func (f *Facade) RemoveUnit(ctx context.Context, property, unit common.Address) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToProperty(), "removeUnit", unit)
}

// SetUnitActive opens or closes a unit for booking.
func (f *Facade) SetUnitActive(ctx context.Context, property, unit common.Address, active bool) (*ledger.Receipt, error) {
	return f.delegate(ctx, property, ledger.ToUnit(unit), "setActive", active)
}

// SetDefaultPrice sets the per-day fiat price in hundredths of the currency.
func (f *Facade) SetDefaultPrice(ctx context.Context, property, unit common.Address, price *big.Int) (*ledger.Receipt, error) {
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToUnit(unit), "setDefaultPrice", price)
}

// SetDefaultTokenPrice sets the per-day token price in base units.
func (f *Facade) SetDefaultTokenPrice(ctx context.Context, property, unit common.Address, price *big.Int) (*ledger.Receipt, error) {
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToUnit(unit), "setDefaultLifPrice", price)
}

// SetCurrencyCode sets the unit's ISO 4217 currency.
func (f *Facade) SetCurrencyCode(ctx context.Context, property, unit common.Address, code string) (*ledger.Receipt, error) {
	encoded, err := codec.EncodeCurrency(code)
	if err != nil {
		return nil, err
	}
	return f.delegate(ctx, property, ledger.ToUnit(unit), "setCurrencyCode", encoded)
}

// SetSpecialPrice overrides the fiat price on every day of rng.
func (f *Facade) SetSpecialPrice(ctx context.Context, property, unit common.Address, price *big.Int, rng types.DayRange) (*ledger.Receipt, error) {
	return f.special(ctx, property, unit, "setSpecialPrice", price, rng)
}

// SetSpecialTokenPrice overrides the token price on every day of rng.
func (f *Facade) SetSpecialTokenPrice(ctx context.Context, property, unit common.Address, price *big.Int, rng types.DayRange) (*ledger.Receipt, error) {
	return f.special(ctx, property, unit, "setSpecialLifPrice", price, rng)
}

// Reservation reads one calendar cell.
func (f *Facade) Reservation(ctx context.Context, unit common.Address, day int64) (types.Reservation, error) {
	return f.Reader.Reservation(ctx, unit, day)
}

func (f *Facade) special(ctx context.Context, property, unit common.Address, method string, price *big.Int, rng types.DayRange) (*ledger.Receipt, error) {
	if err := rng.Validate(); err != nil {
		return nil, &types.CallError{Op: method, Target: unit, Range: &rng, Err: err}
	}
	if err := checkPrice(price); err != nil {
		return nil, err
	}
	receipt, err := f.delegate(ctx, property, ledger.ToUnit(unit), method,
		price, big.NewInt(rng.From), new(big.Int).SetUint64(uint64(rng.Count)))
	if err != nil {
		var ce *types.CallError
		if errors.As(err, &ce) && ce.Range == nil {
			ce.Range = &rng
		}
	}
	return receipt, err
}

// delegate routes method through the registry to property and drops the
// cached snapshot.
func (f *Facade) delegate(ctx context.Context, property common.Address, route ledger.Route, method string, args ...any) (*ledger.Receipt, error) {
	call, err := f.Encoder.Delegate(ctx, f.manager.Address(), property, route, method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := f.Executor.Submit(ctx, f.manager, call)
	f.invalidate(property)
	return receipt, err
}

// deploy creates a category or unit owned by property.
func (f *Facade) deploy(ctx context.Context, artifact *contracts.Artifact, property common.Address, name string) (common.Address, error) {
	if artifact == nil {
		return common.Address{}, ErrNoArtifact
	}
	encoded, err := codec.EncodeName(name)
	if err != nil {
		return common.Address{}, err
	}
	data, err := artifact.DeployData(property, encoded)
	if err != nil {
		return common.Address{}, err
	}
	call := ledger.Call{Data: data, Method: artifact.Kind.String() + ".deploy"}
	receipt, err := f.Executor.Submit(ctx, f.manager, call)
	if err != nil {
		return common.Address{}, err
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, fmt.Errorf("deploy of %s %q produced no contract", artifact.Kind, name)
	}
	return receipt.ContractAddress, nil
}

func (f *Facade) invalidate(property common.Address) {
	if f.Cache != nil {
		f.Cache.Invalidate(property)
	}
}

func checkPrice(price *big.Int) error {
	if price == nil || price.Sign() < 0 {
		return errors.Wrap(types.ErrEncoding, "price must be a non-negative integer")
	}
	return nil
}
