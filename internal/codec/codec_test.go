package codec

import (
	"encoding/binary"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windingtree/wt-client/pkg/types"
)

func TestDayFromTime(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{"epoch", time.Unix(0, 0), 0},
		{"late on first day", time.Date(1970, 1, 1, 23, 59, 59, 0, time.UTC), 0},
		{"second day", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), 1},
		{"before epoch", time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC), -1},
		{"offset zone is normalized", time.Date(2017, 11, 3, 1, 0, 0, 0, time.FixedZone("CET", 2*3600)), 17472},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayFromTime(tt.in))
		})
	}
}

func TestDayRoundTrip(t *testing.T) {
	day, err := ParseDate("2018-02-14")
	require.NoError(t, err)
	assert.Equal(t, "2018-02-14", FormatDay(day))
	assert.Equal(t, day, DayFromTime(TimeFromDay(day)))

	_, err = ParseDate("14/02/2018")
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestNewDayRange(t *testing.T) {
	in := time.Date(2018, 2, 14, 15, 0, 0, 0, time.UTC)
	out := time.Date(2018, 2, 19, 11, 0, 0, 0, time.UTC)

	r, err := NewDayRange(in, out)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), r.Count)
	assert.Equal(t, DayFromTime(in), r.From)

	_, err = NewDayRange(out, in)
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100.00", 10000, false},
		{"100", 10000, false},
		{"0.5", 50, false},
		{".25", 25, false},
		{"12.345", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"1e3", 0, true},
		{"1.x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrEncoding), "expected encoding error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "500.00", FormatPrice(big.NewInt(50000)))
	assert.Equal(t, "0.05", FormatPrice(big.NewInt(5)))
	assert.Equal(t, "0.00", FormatPrice(nil))
}

func TestTokenAmounts(t *testing.T) {
	v, err := ParseToken("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())
	assert.Equal(t, "1.5", FormatToken(v))

	one, err := ParseToken("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), one.Int64())
	assert.Equal(t, "0.000000000000000001", FormatToken(one))

	_, err = ParseToken("0.0000000000000000001")
	assert.True(t, errors.Is(err, types.ErrEncoding))

	assert.Equal(t, "20", FormatToken(new(big.Int).Mul(big.NewInt(20), big.NewInt(1e18))))
}

func TestLocation(t *testing.T) {
	lat, long, err := EncodeLocation(40.426371, -3.703551)
	require.NoError(t, err)
	assert.Equal(t, uint64(130426371), lat)
	assert.Equal(t, uint64(176296449), long)

	gotLat, gotLong := DecodeLocation(lat, long)
	assert.InDelta(t, 40.426371, gotLat, 1e-9)
	assert.InDelta(t, -3.703551, gotLong, 1e-9)

	_, _, err = EncodeLocation(91, 0)
	assert.True(t, errors.Is(err, types.ErrEncoding))
	_, _, err = EncodeLocation(0, -180.5)
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestEncodeName(t *testing.T) {
	b, err := EncodeName("BASIC_ROOM")
	require.NoError(t, err)
	assert.Equal(t, byte('B'), b[0])
	assert.Equal(t, byte(0), b[10])
	assert.Equal(t, "BASIC_ROOM", DecodeName(b))

	exact := "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
	b, err = EncodeName(exact)
	require.NoError(t, err)
	assert.Equal(t, exact, DecodeName(b))

	_, err = EncodeName(exact + "6")
	assert.True(t, errors.Is(err, types.ErrNameTooLong))
	assert.True(t, errors.Is(err, types.ErrEncoding))

	_, err = EncodeName("")
	assert.True(t, errors.Is(err, types.ErrEncoding))
	assert.False(t, errors.Is(err, types.ErrNameTooLong))
}

func TestCurrency(t *testing.T) {
	eur, err := EncodeCurrency("eur")
	require.NoError(t, err)
	assert.Equal(t, [CurrencySize]byte{0, 0, 0, 0, 0, 0, 0x03, 0xd2}, eur)
	assert.Equal(t, "EUR", DecodeCurrency(eur))

	numeric, err := EncodeCurrency("978")
	require.NoError(t, err)
	assert.Equal(t, eur, numeric)

	for alpha, num := range map[string]uint64{"VND": 704, "SAR": 682, "ALL": 8, "XOF": 952} {
		enc, err := EncodeCurrency(alpha)
		require.NoError(t, err, alpha)
		assert.Equal(t, num, binary.BigEndian.Uint64(enc[:]), alpha)
		assert.Equal(t, alpha, DecodeCurrency(enc))
	}

	other, err := EncodeCurrency("4")
	require.NoError(t, err)
	assert.Equal(t, "4", DecodeCurrency(other))

	assert.Equal(t, "", DecodeCurrency([CurrencySize]byte{}))

	_, err = EncodeCurrency("XYZW")
	assert.True(t, errors.Is(err, types.ErrEncoding))
	_, err = EncodeCurrency("1000")
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestNormalizeCountry(t *testing.T) {
	got, err := NormalizeCountry("es")
	require.NoError(t, err)
	assert.Equal(t, "ES", got)

	got, err = NormalizeCountry("ESP")
	require.NoError(t, err)
	assert.Equal(t, "ES", got)

	_, err = NormalizeCountry("Atlantis")
	assert.True(t, errors.Is(err, types.ErrEncoding))
}

func TestZeroPredicates(t *testing.T) {
	assert.True(t, IsZeroBig(nil))
	assert.True(t, IsZeroBig(new(big.Int)))
	assert.False(t, IsZeroBig(big.NewInt(1)))
	assert.Nil(t, NonZero(big.NewInt(0)))
	assert.True(t, IsZeroName([NameSize]byte{}))
}
