package management_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/internal/booking"
	"github.com/windingtree/wt-client/internal/contracts"
	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger"
	"github.com/windingtree/wt-client/internal/ledger/ledgertest"
	"github.com/windingtree/wt-client/internal/management"
	"github.com/windingtree/wt-client/internal/metrics"
	"github.com/windingtree/wt-client/pkg/types"
)

type env struct {
	chain    *ledgertest.Chain
	facade   *management.Facade
	deps     management.Deps
	manager  *ledgertest.Account
	executor *ledger.Executor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	chain := ledgertest.NewChain()
	m := metrics.NewCollector()
	cfg := ledger.DefaultExecutorConfig()
	cfg.ReceiptTimeout = 5 * time.Second
	executor := ledger.NewExecutor(chain, ledger.NewGasEstimator(chain, ledger.DefaultGasPolicy(), m), cfg, m)
	manager := ledgertest.NewAccount()

	deps := management.Deps{
		Encoder:          ledger.NewEncoder(ledgertest.RegistryAddress, chain),
		Executor:         executor,
		Reader:           inventory.NewReader(chain, ledgertest.RegistryAddress, inventory.Config{}),
		Reconciler:       events.NewReconciler(chain, contracts.NewDecoder(), m),
		Cache:            inventory.NewCache(inventory.DefaultCacheTTL),
		CategoryArtifact: chain.Artifact(contracts.Category),
		UnitArtifact:     chain.Artifact(contracts.Unit),
	}
	return &env{
		chain:    chain,
		facade:   management.New(manager, deps),
		deps:     deps,
		manager:  manager,
		executor: executor,
	}
}

func TestPropertyLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade

	property, err := f.CreateProperty(ctx, "Casa Azul", "Rooms by the sea")
	require.NoError(t, err)

	snap, err := f.Property(ctx, property)
	require.NoError(t, err)
	assert.Equal(t, "Casa Azul", snap.Name)
	assert.Equal(t, e.manager.Address(), snap.Manager)
	assert.Nil(t, snap.Location)
	assert.Equal(t, 1, e.deps.Cache.Len())

	_, err = f.ChangeInfo(ctx, property, "Casa Roja", "Renovated")
	require.NoError(t, err)
	assert.Equal(t, 0, e.deps.Cache.Len(), "mutation invalidates the snapshot")

	_, err = f.ChangeAddress(ctx, property, types.PostalAddress{LineOne: "Carrer 1", Zip: "08001", Country: "es"})
	require.NoError(t, err)
	_, err = f.ChangeLocation(ctx, property, types.Location{Timezone: 1, Latitude: 41.3874, Longitude: 2.1686})
	require.NoError(t, err)
	_, err = f.SetRequireConfirmation(ctx, property, true)
	require.NoError(t, err)
	for _, url := range []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"} {
		_, err = f.AddPropertyImage(ctx, property, url)
		require.NoError(t, err)
	}
	_, err = f.RemovePropertyImage(ctx, property, 1)
	require.NoError(t, err)

	snap, err = f.Property(ctx, property)
	require.NoError(t, err)
	assert.Equal(t, "Casa Roja", snap.Name)
	assert.Equal(t, "Renovated", snap.Description)
	assert.Equal(t, types.PostalAddress{LineOne: "Carrer 1", Zip: "08001", Country: "ES"}, snap.PostalAddress)
	require.NotNil(t, snap.Location)
	assert.Equal(t, uint64(1), snap.Location.Timezone)
	assert.InDelta(t, 41.3874, snap.Location.Latitude, 1e-6)
	assert.InDelta(t, 2.1686, snap.Location.Longitude, 1e-6)
	assert.True(t, snap.RequireConfirmation)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/3.jpg"}, snap.Images)

	_, err = f.ChangeAddress(ctx, property, types.PostalAddress{Country: "Atlantis"})
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestCategoryAndUnitLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade

	property, err := f.CreateProperty(ctx, "Hostel", "")
	require.NoError(t, err)
	category, err := f.AddCategory(ctx, property, "DORM")
	require.NoError(t, err)

	_, err = f.EditCategory(ctx, property, "DORM", management.CategoryInfo{Description: "Bunks", MinGuests: 1, MaxGuests: 6, Price: "20 EUR"})
	require.NoError(t, err)
	for _, a := range []uint64{5, 7, 9} {
		_, err = f.AddAmenity(ctx, property, "DORM", a)
		require.NoError(t, err)
	}
	_, err = f.RemoveAmenity(ctx, property, "DORM", 7)
	require.NoError(t, err)
	_, err = f.AddCategoryImage(ctx, property, "DORM", "https://img/dorm.jpg")
	require.NoError(t, err)

	unit, err := f.AddUnit(ctx, property, "DORM")
	require.NoError(t, err)
	_, err = f.SetUnitActive(ctx, property, unit, true)
	require.NoError(t, err)
	_, err = f.SetDefaultPrice(ctx, property, unit, big.NewInt(2000))
	require.NoError(t, err)
	_, err = f.SetDefaultTokenPrice(ctx, property, unit, big.NewInt(40))
	require.NoError(t, err)
	_, err = f.SetCurrencyCode(ctx, property, unit, "EUR")
	require.NoError(t, err)
	_, err = f.SetSpecialPrice(ctx, property, unit, big.NewInt(3000), types.DayRange{From: 19000, Count: 2})
	require.NoError(t, err)
	_, err = f.SetSpecialTokenPrice(ctx, property, unit, big.NewInt(55), types.DayRange{From: 19001, Count: 1})
	require.NoError(t, err)

	snap, err := f.Property(ctx, property, inventory.WithCalendar(types.DayRange{From: 18999, Count: 4}))
	require.NoError(t, err)
	require.Contains(t, snap.Categories, "DORM")
	cat := snap.Categories["DORM"]
	assert.Equal(t, category, cat.Address)
	assert.Equal(t, "Bunks", cat.Description)
	assert.Equal(t, uint64(6), cat.MaxGuests)
	assert.Equal(t, "20 EUR", cat.Price)
	assert.Equal(t, []uint64{5, 9}, cat.Amenities)
	assert.Equal(t, []string{"https://img/dorm.jpg"}, cat.Images)

	require.Contains(t, snap.Units, unit)
	u := snap.Units[unit]
	assert.Equal(t, "DORM", u.Category)
	assert.True(t, u.Active)
	assert.Equal(t, big.NewInt(2000), u.DefaultPrice)
	assert.Equal(t, big.NewInt(40), u.DefaultTokenPrice)
	assert.Equal(t, "EUR", u.CurrencyCode)
	assert.Len(t, u.Calendar, 2)
	assert.Equal(t, big.NewInt(3000), u.Calendar[19000].SpecialPrice)
	assert.Nil(t, u.Calendar[19000].SpecialTokenPrice)
	assert.Equal(t, big.NewInt(55), u.Calendar[19001].SpecialTokenPrice)

	res, err := f.Reservation(ctx, unit, 19001)
	require.NoError(t, err)
	assert.False(t, res.Booked())
	assert.Equal(t, big.NewInt(3000), res.SpecialPrice)

	_, err = f.RemoveUnit(ctx, property, unit)
	require.NoError(t, err)
	_, err = f.RemoveCategory(ctx, property, "DORM")
	require.NoError(t, err)

	snap, err = f.Property(ctx, property)
	require.NoError(t, err)
	assert.Empty(t, snap.Categories)
	assert.Empty(t, snap.Units)

	// The name is free again.
	_, err = f.AddCategory(ctx, property, "DORM")
	require.NoError(t, err)
}

func TestManagementRejectsBeforeSubmitting(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade

	property, err := f.CreateProperty(ctx, "Strict", "")
	require.NoError(t, err)
	txs := e.chain.TxCount()

	_, err = f.AddUnit(ctx, property, "MISSING")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = f.AddCategory(ctx, property, "A CATEGORY NAME THAT IS FAR TOO LONG")
	assert.True(t, errors.Is(err, types.ErrNameTooLong))
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = f.EditCategory(ctx, property, "X", management.CategoryInfo{MinGuests: 4, MaxGuests: 2})
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = f.SetSpecialPrice(ctx, property, common.HexToAddress("0x01"), big.NewInt(1), types.DayRange{From: 1})
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = f.SetDefaultPrice(ctx, property, common.HexToAddress("0x01"), big.NewInt(-1))
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = f.SetCurrencyCode(ctx, property, common.HexToAddress("0x01"), "ZZZ")
	assert.True(t, errors.Is(err, types.ErrEncoding))

	// Editing a category that does not exist is refused at estimation.
	_, err = f.EditCategory(ctx, property, "GHOST", management.CategoryInfo{})
	assert.True(t, errors.Is(err, types.ErrEstimationFailed))

	assert.Equal(t, txs, e.chain.TxCount())

	noArtifacts := management.New(e.manager, management.Deps{
		Encoder:  e.deps.Encoder,
		Executor: e.deps.Executor,
		Reader:   e.deps.Reader,
	})
	_, err = noArtifacts.AddCategory(ctx, property, "ROOM")
	assert.ErrorIs(t, err, management.ErrNoArtifact)
}

func TestRemovePropertyKeepsOthersReachable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade

	first, err := f.CreateProperty(ctx, "First", "")
	require.NoError(t, err)
	second, err := f.CreateProperty(ctx, "Second", "")
	require.NoError(t, err)

	_, err = f.RemoveProperty(ctx, first)
	require.NoError(t, err)

	// second moved from index 1 to index 0.
	_, err = f.ChangeInfo(ctx, second, "Second, edited", "")
	require.NoError(t, err)

	props, err := f.Properties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, second, props[0].Address)
	assert.Equal(t, "Second, edited", props[0].Name)

	_, err = f.ChangeInfo(ctx, first, "gone", "")
	assert.True(t, errors.Is(err, types.ErrNotManaged))
}

func TestConfirmBooking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade

	property, err := f.CreateProperty(ctx, "Manor", "")
	require.NoError(t, err)
	_, err = f.SetRequireConfirmation(ctx, property, true)
	require.NoError(t, err)
	_, err = f.AddCategory(ctx, property, "ROOM")
	require.NoError(t, err)
	unit, err := f.AddUnit(ctx, property, "ROOM")
	require.NoError(t, err)
	_, err = f.SetUnitActive(ctx, property, unit, true)
	require.NoError(t, err)

	orchestrator := booking.NewOrchestrator(e.deps.Reader, e.executor)
	guest := ledgertest.NewAccount()
	rng := types.DayRange{From: 20000, Count: 3}
	attempt, err := orchestrator.Book(ctx, guest, booking.Intent{Property: property, Unit: unit, Range: rng, GuestPayload: []byte("Grace, 2 adults")})
	require.NoError(t, err)
	require.True(t, attempt.Pending)

	requests, err := f.Requests(ctx, 0)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, attempt.ContentHash, requests[0].ContentHash)
	assert.Equal(t, guest.Address(), requests[0].Requester)
	assert.Equal(t, rng, requests[0].Range)

	_, err = f.ConfirmBooking(ctx, property, attempt.ContentHash)
	require.NoError(t, err)

	requests, err = f.Requests(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, requests)

	bookings, err := f.Bookings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, []byte("Grace, 2 adults"), bookings[0].GuestPayload)
	assert.Equal(t, unit, bookings[0].Unit)

	res, err := f.Reservation(ctx, unit, 20001)
	require.NoError(t, err)
	assert.Equal(t, guest.Address(), res.BookedBy)

	// A second confirmation of the same request is refused.
	_, err = f.ConfirmBooking(ctx, property, attempt.ContentHash)
	require.Error(t, err)
	ce, ok := types.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, attempt.ContentHash, ce.ContentHash)
}
