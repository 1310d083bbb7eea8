package inventory_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/ledger/ledgertest"
	"github.com/windingtree/wt-client/pkg/types"
)

var bigComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func seedHotel(t *testing.T, chain *ledgertest.Chain, manager common.Address) *ledgertest.Seeded {
	t.Helper()
	return chain.SeedProperty(manager, ledgertest.PropertySeed{
		Name:                "Hotel Lisboa",
		Description:         "By the river",
		RequireConfirmation: true,
		Images:              []string{"https://img/1.jpg", "", "https://img/2.jpg"},
		Categories: []ledgertest.CategorySeed{
			{
				Name:        "DOUBLE",
				Description: "Double room",
				MinGuests:   1,
				MaxGuests:   2,
				Price:       "100 EUR",
				Amenities:   []uint64{3, 0, 7},
				Units: []ledgertest.UnitSeed{
					{Active: true, DefaultPrice: big.NewInt(10_000), DefaultTokenPrice: big.NewInt(2e18), Currency: "EUR"},
					{Active: false, DefaultPrice: big.NewInt(12_000), Currency: "936"},
				},
			},
			{Name: "SUITE"},
		},
	})
}

func TestReaderPropertySnapshot(t *testing.T) {
	ctx := context.Background()
	chain := ledgertest.NewChain()
	manager := ledgertest.NewAccount().Address()
	seeded := seedHotel(t, chain, manager)

	reader := inventory.NewReader(chain, ledgertest.RegistryAddress, inventory.Config{})
	snap, err := reader.Property(ctx, seeded.Address)
	require.NoError(t, err)

	want := &types.PropertySnapshot{
		Address:             seeded.Address,
		Manager:             manager,
		Name:                "Hotel Lisboa",
		Description:         "By the river",
		RequireConfirmation: true,
		Images:              []string{"https://img/1.jpg", "https://img/2.jpg"},
		Categories: map[string]*types.CategorySnapshot{
			"DOUBLE": {
				Address:     seeded.Categories["DOUBLE"],
				Name:        "DOUBLE",
				Description: "Double room",
				MinGuests:   1,
				MaxGuests:   2,
				Price:       "100 EUR",
				Amenities:   []uint64{3, 7},
			},
			"SUITE": {
				Address: seeded.Categories["SUITE"],
				Name:    "SUITE",
			},
		},
		Units: map[common.Address]*types.UnitSnapshot{
			seeded.Units[0]: {
				Address:           seeded.Units[0],
				Category:          "DOUBLE",
				Active:            true,
				DefaultPrice:      big.NewInt(10_000),
				DefaultTokenPrice: big.NewInt(2e18),
				CurrencyCode:      "EUR",
			},
			seeded.Units[1]: {
				Address:           seeded.Units[1],
				Category:          "DOUBLE",
				DefaultPrice:      big.NewInt(12_000),
				DefaultTokenPrice: big.NewInt(0),
				CurrencyCode:      "936",
			},
		},
	}
	if diff := cmp.Diff(want, snap, bigComparer, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, snap.Location)
}

func TestReaderCalendar(t *testing.T) {
	ctx := context.Background()
	chain := ledgertest.NewChain()
	guest := ledgertest.NewAccount().Address()
	seeded := seedHotel(t, chain, ledgertest.NewAccount().Address())
	unit := seeded.Units[0]

	chain.SeedReservation(unit, 20_001, big.NewInt(15_000), nil, common.Address{})
	chain.SeedReservation(unit, 20_003, nil, nil, guest)
	chain.SeedReservation(unit, 20_050, big.NewInt(1), nil, common.Address{})

	reader := inventory.NewReader(chain, ledgertest.RegistryAddress, inventory.Config{RequestsPerSecond: 1000, Burst: 50})
	rng := types.DayRange{From: 20_000, Count: 5}

	cal, err := reader.Calendar(ctx, unit, rng)
	require.NoError(t, err)
	require.Len(t, cal, 2)
	assert.Equal(t, int64(15_000), cal[20_001].SpecialPrice.Int64())
	assert.Nil(t, cal[20_001].SpecialTokenPrice)
	assert.False(t, cal[20_001].Booked())
	assert.Equal(t, guest, cal[20_003].BookedBy)

	snap, err := reader.Property(ctx, seeded.Address, inventory.WithCalendar(rng))
	require.NoError(t, err)
	assert.Len(t, snap.Units[unit].Calendar, 2)
	assert.Empty(t, snap.Units[seeded.Units[1]].Calendar)

	_, err = reader.Calendar(ctx, unit, types.DayRange{From: 20_000})
	assert.True(t, errors.Is(err, types.ErrEncoding))

	res, err := reader.Reservation(ctx, unit, 20_002)
	require.NoError(t, err)
	assert.Equal(t, int64(20_002), res.Day)
	assert.Nil(t, res.SpecialPrice)
	assert.False(t, res.Booked())
}

func TestReaderLookups(t *testing.T) {
	ctx := context.Background()
	chain := ledgertest.NewChain()
	manager := ledgertest.NewAccount().Address()
	first := seedHotel(t, chain, manager)
	second := chain.SeedProperty(manager, ledgertest.PropertySeed{Name: "Second"})
	chain.SeedProperty(ledgertest.NewAccount().Address(), ledgertest.PropertySeed{Name: "Elsewhere"})

	reader := inventory.NewReader(chain, ledgertest.RegistryAddress, inventory.Config{})

	mine, err := reader.PropertiesOf(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{first.Address, second.Address}, mine)

	all, err := reader.Properties(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	addr, err := reader.CategoryAddress(ctx, first.Address, "SUITE")
	require.NoError(t, err)
	assert.Equal(t, first.Categories["SUITE"], addr)

	index, err := reader.CategoryIndex(ctx, first.Address, "SUITE")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)

	_, err = reader.CategoryAddress(ctx, first.Address, "PENTHOUSE")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = reader.CategoryIndex(ctx, second.Address, "DOUBLE")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	_, err = reader.CategoryAddress(ctx, first.Address, "THIS-NAME-IS-LONGER-THAN-THIRTY-TWO-BYTES")
	assert.True(t, errors.Is(err, types.ErrNameTooLong))

	wait, err := reader.RequiresConfirmation(ctx, first.Address)
	require.NoError(t, err)
	assert.True(t, wait)

	token, err := reader.TokenAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledgertest.TokenAddress, token)
}

func TestReaderCanceledContext(t *testing.T) {
	chain := ledgertest.NewChain()
	seeded := seedHotel(t, chain, ledgertest.NewAccount().Address())
	reader := inventory.NewReader(chain, ledgertest.RegistryAddress, inventory.Config{RequestsPerSecond: 0.001, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reader.Property(ctx, seeded.Address)
	require.Error(t, err)
}
