package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/booking"
	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/pkg/types"
)

// withSession opens a session and runs fn. No wallet is unlocked.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// NewQuoteCmd creates the quote command
func NewQuoteCmd() *cobra.Command {
	var (
		from   string
		nights uint32
	)

	cmd := &cobra.Command{
		Use:   "quote UNIT",
		Short: "Price a stay and check availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := parseAddress("unit", args[0])
			if err != nil {
				return err
			}
			rng, err := parseRange(from, nights)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				o := s.orchestrator()
				quote, err := o.Quote(ctx, unit, rng)
				if err != nil {
					return err
				}
				available, err := o.UnitIsAvailable(ctx, unit, rng)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(struct {
						*types.Quote
						Available bool `json:"available"`
					}{quote, available})
				}
				printQuote(quote, available)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().Uint32Var(&nights, "nights", 1, "Number of nights")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func printQuote(q *types.Quote, available bool) {
	rows := make([][]string, 0, len(q.Days))
	for _, d := range q.Days {
		rows = append(rows, []string{codec.FormatDay(d.Day), priceCell(d.Fiat, q.CurrencyCode), tokenCell(d.Token)})
	}
	fmt.Println(RenderTable([]column{left("NIGHT"), right("PRICE"), right("TOKEN")}, rows))

	state := "available"
	if !available {
		state = "unavailable"
	}
	fmt.Println(StatusBox("Quote", [][2]string{
		{"Unit", q.Unit.Hex()},
		{"Stay", stayCell(q.Range)},
		{"Total", priceCell(q.Fiat, q.CurrencyCode)},
		{"Total token", tokenCell(q.Token)},
		{"Status", StatusBadge(state)},
	}))
}

// NewBookCmd creates the book command
func NewBookCmd() *cobra.Command {
	var (
		from      string
		nights    uint32
		guestData string
		guestFile string
		direct    bool
	)

	cmd := &cobra.Command{
		Use:   "book PROPERTY UNIT",
		Short: "Book a unit",
		Long: `Book a unit for a range of nights.

By default the stay is paid in tokens: the request rides on a token approval
covering the quoted cost. With --direct the request is sent to the property
without payment.

Guest data is kept on the ledger only in the transaction input and is
returned to the manager with the booking.

Examples:
  wtclient book 0xPROPERTY 0xUNIT --from 2026-11-01 --nights 5 --guest-data "Jane Doe, 2 adults"
  wtclient book 0xPROPERTY 0xUNIT --from 2026-11-01 --direct --guest-file guest.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			rng, err := parseRange(from, nights)
			if err != nil {
				return err
			}
			payload := []byte(guestData)
			if guestFile != "" {
				if payload, err = os.ReadFile(guestFile); err != nil {
					return fmt.Errorf("failed to read guest file: %w", err)
				}
			}
			intent := booking.Intent{Property: property, Unit: unit, Range: rng, GuestPayload: payload}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				signer, err := s.signer()
				if err != nil {
					return err
				}
				o := s.orchestrator()
				book := o.BookWithToken
				if direct {
					book = o.Book
				}
				attempt, err := book(ctx, signer, intent)
				if jsonOutput() {
					if perr := printJSON(attempt); perr != nil {
						return perr
					}
					return err
				}
				printAttempt(attempt)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().Uint32Var(&nights, "nights", 1, "Number of nights")
	cmd.Flags().StringVar(&guestData, "guest-data", "", "Guest data passed to the manager")
	cmd.Flags().StringVar(&guestFile, "guest-file", "", "Read guest data from a file")
	cmd.Flags().BoolVar(&direct, "direct", false, "Request without token payment")
	cmd.MarkFlagsMutuallyExclusive("guest-data", "guest-file")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func printAttempt(a *booking.Attempt) {
	if a == nil {
		return
	}
	state := string(a.State)
	if a.State == booking.StateSettled && a.Pending {
		state = "pending"
	}
	fields := [][2]string{
		{"Attempt", a.ID},
		{"Path", string(a.Path)},
		{"Status", StatusBadge(state)},
	}
	if a.Quote != nil {
		fields = append(fields,
			[2]string{"Price", priceCell(a.Quote.Fiat, a.Quote.CurrencyCode)},
			[2]string{"Token", tokenCell(a.Quote.Token)})
	}
	if a.ContentHash != (common.Hash{}) {
		fields = append(fields, [2]string{"Content hash", a.ContentHash.Hex()})
	}
	if a.Receipt != nil {
		fields = append(fields, [2]string{"Transaction", a.Receipt.TxHash.Hex()})
	}
	fmt.Println(StatusBox("Booking", fields))

	switch {
	case a.State == booking.StateSettled && a.Pending:
		Info("The property requires confirmation; the manager can confirm with:")
		fmt.Println(Hint(fmt.Sprintf("wtclient confirm %s %s", a.Intent.Property.Hex(), a.ContentHash.Hex())))
	case a.State == booking.StateSettled:
		Success("Booked")
	case a.Cause != nil:
		Warning(a.Cause.Error())
	}
}

// NewBookingsCmd creates the bookings command
func NewBookingsCmd() *cobra.Command {
	var (
		properties []string
		fromBlock  uint64
	)

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List confirmed bookings with guest data",
		Long: `List confirmed bookings of your properties, or of the properties given
with --property, together with the guest data recovered from the ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				props, err := s.propertiesOrOwn(ctx, properties)
				if err != nil {
					return err
				}
				list, err := s.reconciler.ConfirmedBookings(ctx, props, fromBlock)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(list)
				}
				if len(list) == 0 {
					Info("No bookings found")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, b := range list {
					rows = append(rows, []string{
						addressCell(b.Property), addressCell(b.Unit), stayCell(b.Range),
						addressCell(b.Requester), displayPayload(b.GuestPayload),
						strconv.FormatUint(b.Ref.BlockNumber, 10),
					})
				}
				fmt.Println(RenderTable([]column{
					left("PROPERTY"), left("UNIT"), left("STAY"), left("GUEST"), left("DATA"), right("BLOCK"),
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&properties, "property", nil, "Property address (repeatable; default: your properties)")
	cmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "First block to scan")
	return cmd
}

// NewRequestsCmd creates the requests command
func NewRequestsCmd() *cobra.Command {
	var (
		properties []string
		fromBlock  uint64
	)

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List booking requests awaiting confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				props, err := s.propertiesOrOwn(ctx, properties)
				if err != nil {
					return err
				}
				list, err := s.reconciler.OutstandingRequests(ctx, props, fromBlock)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(list)
				}
				if len(list) == 0 {
					Info("No outstanding requests")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, r := range list {
					rows = append(rows, []string{
						addressCell(r.Property), r.ContentHash.Hex(), r.Method,
						addressCell(r.Unit), stayCell(r.Range), displayPayload(r.GuestPayload),
					})
				}
				fmt.Println(RenderTable([]column{
					left("PROPERTY"), left("CONTENT HASH"), left("METHOD"), left("UNIT"), left("STAY"), left("DATA"),
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&properties, "property", nil, "Property address (repeatable; default: your properties)")
	cmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "First block to scan")
	return cmd
}

// NewConfirmCmd creates the confirm command
func NewConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm PROPERTY CONTENT_HASH",
		Short: "Confirm a pending booking request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			hash, err := parseHash(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				f, err := s.facade()
				if err != nil {
					return err
				}
				r, err := f.ConfirmBooking(ctx, property, hash)
				if err != nil {
					return err
				}
				return printReceipt("Booking confirmed", r)
			})
		},
	}
}

// propertiesOrOwn parses explicit property flags, or lists the wallet's
// own properties when none are given.
func (s *session) propertiesOrOwn(ctx context.Context, flags []string) ([]common.Address, error) {
	if len(flags) > 0 {
		out := make([]common.Address, 0, len(flags))
		for _, f := range flags {
			addr, err := parseAddress("property", f)
			if err != nil {
				return nil, err
			}
			out = append(out, addr)
		}
		return out, nil
	}
	signer, err := s.signer()
	if err != nil {
		return nil, err
	}
	return s.reader.PropertiesOf(ctx, signer.Address())
}

// displayPayload shows guest data as text when it is printable.
func displayPayload(b []byte) string {
	const limit = 40
	if len(b) == 0 {
		return "-"
	}
	if !utf8.Valid(b) {
		return fmt.Sprintf("0x%x", b)
	}
	s := string(b)
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit-3]) + "..."
	}
	return strconv.Quote(s)
}
