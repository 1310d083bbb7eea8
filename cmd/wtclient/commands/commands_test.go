package commands

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/pkg/types"
)

func TestCommandUse(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		use  string
	}{
		{"property", NewPropertyCmd(), "property"},
		{"category", NewCategoryCmd(), "category"},
		{"unit", NewUnitCmd(), "unit"},
		{"quote", NewQuoteCmd(), "quote UNIT"},
		{"book", NewBookCmd(), "book PROPERTY UNIT"},
		{"bookings", NewBookingsCmd(), "bookings"},
		{"requests", NewRequestsCmd(), "requests"},
		{"confirm", NewConfirmCmd(), "confirm PROPERTY CONTENT_HASH"},
		{"watch", NewWatchCmd(), "watch"},
		{"wallet", NewWalletCmd(), "wallet"},
		{"config", NewConfigCmd(), "config"},
		{"doctor", NewDoctorCmd(), "doctor"},
		{"version", NewVersionCmd(), "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd == nil {
				t.Fatal("constructor returned nil")
			}
			if tt.cmd.Use != tt.use {
				t.Errorf("Use mismatch: got %s, want %s", tt.cmd.Use, tt.use)
			}
		})
	}
}

func TestNewBookCmdFlags(t *testing.T) {
	cmd := NewBookCmd()

	for _, name := range []string{"from", "nights", "guest-data", "guest-file", "direct"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s flag should exist", name)
		}
	}
	if got := cmd.Flags().Lookup("nights").DefValue; got != "1" {
		t.Errorf("nights default: got %s, want 1", got)
	}
}

func TestNewUnitCmdSubcommands(t *testing.T) {
	cmd := NewUnitCmd()

	want := []string{"add", "remove", "active", "price", "token-price", "currency", "special-price", "special-token-price"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub == cmd {
			t.Errorf("unit %s subcommand should exist", name)
		}
	}
}

func TestNewWalletCmdSubcommands(t *testing.T) {
	cmd := NewWalletCmd()

	for _, name := range []string{"create", "import", "show", "export", "forget-password"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub == cmd {
			t.Errorf("wallet %s subcommand should exist", name)
			continue
		}
		if sub.Flags().Lookup("keystore") == nil {
			t.Errorf("wallet %s should have --keystore", name)
		}
	}
}

func TestParseRange(t *testing.T) {
	rng, err := parseRange("1970-01-11", 3)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if rng.From != 10 || rng.Count != 3 {
		t.Errorf("got %+v, want from 10 count 3", rng)
	}

	if _, err := parseRange("1970-01-11", 0); err == nil {
		t.Error("zero nights should be rejected")
	}
	if _, err := parseRange("11/01/1970", 1); err == nil {
		t.Error("bad date should be rejected")
	}
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"yes", true, false},
		{"off", false, false},
		{"false", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		got, err := parseSwitch(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSwitch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSwitch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := parseAddress("unit", "0x52908400098527886E0F7030069857D2E4169EE7"); err != nil {
		t.Errorf("valid address rejected: %v", err)
	}
	if _, err := parseAddress("unit", "52908400098527886E0F7030069857D2E4169EE7"); err == nil {
		t.Error("address without 0x should be rejected")
	}
	if _, err := parseAddress("unit", "0x1234"); err == nil {
		t.Error("short address should be rejected")
	}
}

func TestParseHash(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	got, err := parseHash(hash)
	if err != nil {
		t.Fatalf("parseHash: %v", err)
	}
	if got.Hex() != hash {
		t.Errorf("got %s, want %s", got.Hex(), hash)
	}

	if _, err := parseHash("0xabcd"); err == nil {
		t.Error("short hash should be rejected")
	}
	if _, err := parseHash(strings.Repeat("ab", 32)); err == nil {
		t.Error("hash without 0x should be rejected")
	}
}

func TestCheckKeyHex(t *testing.T) {
	if err := checkKeyHex("0x" + strings.Repeat("1f", 32)); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := checkKeyHex(strings.Repeat("1f", 31)); err == nil {
		t.Error("short key should be rejected")
	}
	if err := checkKeyHex(strings.Repeat("zz", 32)); err == nil {
		t.Error("non-hex key should be rejected")
	}
}

func TestDisplayPayload(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, "-"},
		{"text", []byte("Jane Doe"), `"Jane Doe"`},
		{"binary", []byte{0xff, 0xfe}, "0xfffe"},
		{"long", []byte(strings.Repeat("a", 50)), `"` + strings.Repeat("a", 37) + `..."`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayPayload(tt.in); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatAddress(t *testing.T) {
	got := FormatAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	if got != "0x5290...9EE7" {
		t.Errorf("got %s", got)
	}
	if got := FormatAddress("0x1234"); got != "0x1234" {
		t.Errorf("short address should be unchanged, got %s", got)
	}
}

func TestRenderTablePlain(t *testing.T) {
	out := renderTablePlain([]column{left("NIGHT"), right("PRICE")}, [][]string{
		{"2026-11-01", "120.00"},
		{"2026-11-02", "95.50"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and two rows, got %d lines", len(lines))
	}
	if lines[0] != "NIGHT        PRICE" {
		t.Errorf("header mismatch: %q", lines[0])
	}
	if lines[1] != "----------  ------" {
		t.Errorf("rule mismatch: %q", lines[1])
	}
	if lines[3] != "2026-11-02   95.50" {
		t.Errorf("amounts should align right: %q", lines[3])
	}
	if renderTablePlain(nil, nil) != "" {
		t.Error("no columns should render nothing")
	}
}

func TestCells(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"address", addressCell(common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")), "0x5290...9EE7"},
		{"price", priceCell(big.NewInt(12050), "USD"), "120.50 USD"},
		{"price without currency", priceCell(big.NewInt(12050), ""), "120.50"},
		{"unset price", priceCell(nil, "USD"), "-"},
		{"unset token", tokenCell(nil), "-"},
		{"one night", stayCell(types.DayRange{From: 10, Count: 1}), "1970-01-11 (1 night)"},
		{"stay", stayCell(types.DayRange{From: 10, Count: 3}), "1970-01-11 (3 nights)"},
		{"empty value", orDash(""), "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEventKind(t *testing.T) {
	if got := eventKind(&events.Booked{}); got != "booked" {
		t.Errorf("got %s", got)
	}
	if got := eventKind(&events.RequestStarted{}); got != "request_started" {
		t.Errorf("got %s", got)
	}
	if got := eventKind(&events.RequestFinished{}); got != "request_finished" {
		t.Errorf("got %s", got)
	}
	if got := eventKind("x"); got != "unknown" {
		t.Errorf("got %s", got)
	}
}
