package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/inventory"
	"github.com/windingtree/wt-client/internal/management"
	"github.com/windingtree/wt-client/pkg/types"
)

// withFacade opens a session, unlocks the wallet and runs fn.
func withFacade(cmd *cobra.Command, fn func(ctx context.Context, f *management.Facade) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := s.facade()
	if err != nil {
		return err
	}
	return fn(ctx, f)
}

// NewPropertyCmd creates the property command group
func NewPropertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage your properties",
		Long: `Create, inspect and edit the properties registered by your wallet.

Every change is routed through the registry on behalf of the manager account.

Examples:
  wtclient property create "Hotel Danube" --description "Riverside rooms"
  wtclient property list
  wtclient property show 0xPROPERTY --from 2026-11-01 --nights 7
  wtclient property confirmation 0xPROPERTY on`,
	}

	cmd.AddCommand(newPropertyCreateCmd())
	cmd.AddCommand(newPropertyListCmd())
	cmd.AddCommand(newPropertyShowCmd())
	cmd.AddCommand(newPropertyRemoveCmd())
	cmd.AddCommand(newPropertyConfirmationCmd())
	cmd.AddCommand(newPropertyEditCmd())
	cmd.AddCommand(newPropertyAddressCmd())
	cmd.AddCommand(newPropertyLocationCmd())
	cmd.AddCommand(newPropertyImageCmd())

	return cmd
}

func newPropertyCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register a new property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				addr, err := f.CreateProperty(ctx, args[0], description)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(map[string]string{"property": addr.Hex()})
				}
				Success(fmt.Sprintf("Property %q registered at %s", args[0], addr.Hex()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Property description")
	return cmd
}

func newPropertyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				props, err := f.Properties(ctx)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(props)
				}
				if len(props) == 0 {
					Info("No properties registered by " + f.Manager().Hex())
					return nil
				}
				rows := make([][]string, 0, len(props))
				for _, p := range props {
					rows = append(rows, []string{
						p.Address.Hex(),
						p.Name,
						strconv.Itoa(len(p.Categories)),
						strconv.Itoa(len(p.Units)),
						strconv.FormatBool(p.RequireConfirmation),
					})
				}
				fmt.Println(RenderTable([]column{
					left("ADDRESS"), left("NAME"), right("CATEGORIES"), right("UNITS"), left("CONFIRM"),
				}, rows))
				return nil
			})
		},
	}
}

func newPropertyShowCmd() *cobra.Command {
	var (
		from   string
		nights uint32
	)

	cmd := &cobra.Command{
		Use:   "show PROPERTY",
		Short: "Show a property with its categories and units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			var opts []inventory.Option
			if from != "" {
				rng, err := parseRange(from, nights)
				if err != nil {
					return err
				}
				opts = append(opts, inventory.WithCalendar(rng))
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				snap, err := f.Property(ctx, property, opts...)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(snap)
				}
				printProperty(snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Include the calendar starting at this date (YYYY-MM-DD)")
	cmd.Flags().Uint32Var(&nights, "nights", 7, "Calendar length in nights")
	return cmd
}

func printProperty(p *types.PropertySnapshot) {
	fields := [][2]string{
		{"Address", p.Address.Hex()},
		{"Manager", p.Manager.Hex()},
		{"Name", p.Name},
		{"Description", p.Description},
		{"Confirmation", strconv.FormatBool(p.RequireConfirmation)},
	}
	if a := p.PostalAddress; a.LineOne != "" || a.Country != "" {
		fields = append(fields, [2]string{"Postal", fmt.Sprintf("%s %s, %s %s", a.LineOne, a.LineTwo, a.Zip, a.Country)})
	}
	if l := p.Location; l != nil {
		fields = append(fields, [2]string{"Location", fmt.Sprintf("%.5f, %.5f (tz %d)", l.Latitude, l.Longitude, l.Timezone)})
	}
	for i, img := range p.Images {
		fields = append(fields, [2]string{fmt.Sprintf("Image %d", i), img})
	}
	fmt.Println(StatusBox("Property", fields))

	names := make([]string, 0, len(p.Categories))
	for name := range p.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			c := p.Categories[name]
			rows = append(rows, []string{name, c.Address.Hex(), fmt.Sprintf("%d-%d", c.MinGuests, c.MaxGuests), c.Price, fmt.Sprint(c.Amenities)})
		}
		fmt.Println(RenderTable([]column{
			left("CATEGORY"), left("ADDRESS"), right("GUESTS"), right("PRICE"), left("AMENITIES"),
		}, rows))
	}

	units := make([]*types.UnitSnapshot, 0, len(p.Units))
	for _, u := range p.Units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Address.Hex() < units[j].Address.Hex() })
	if len(units) > 0 {
		rows := make([][]string, 0, len(units))
		for _, u := range units {
			state := "inactive"
			if u.Active {
				state = "active"
			}
			booked := 0
			for _, r := range u.Calendar {
				if r.Booked() {
					booked++
				}
			}
			rows = append(rows, []string{
				u.Address.Hex(), u.Category, StatusBadge(state),
				priceCell(u.DefaultPrice, u.CurrencyCode),
				tokenCell(u.DefaultTokenPrice),
				fmt.Sprintf("%d/%d", booked, len(u.Calendar)),
			})
		}
		fmt.Println(RenderTable([]column{
			left("UNIT"), left("CATEGORY"), left("STATE"), right("PRICE"), right("TOKEN"), right("BOOKED"),
		}, rows))
	}
}

func newPropertyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PROPERTY",
		Short: "Unregister a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.RemoveProperty(ctx, property)
				if err != nil {
					return err
				}
				return printReceipt("Property removed", r)
			})
		},
	}
}

func newPropertyConfirmationCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "confirmation PROPERTY on|off",
		Short:     "Require manager confirmation for bookings",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			wait, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.SetRequireConfirmation(ctx, property, wait)
				if err != nil {
					return err
				}
				return printReceipt("Confirmation setting changed", r)
			})
		},
	}
}

func newPropertyEditCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "edit PROPERTY",
		Short: "Change name and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.ChangeInfo(ctx, property, name, description)
				if err != nil {
					return err
				}
				return printReceipt("Property info changed", r)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Property name")
	cmd.Flags().StringVar(&description, "description", "", "Property description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPropertyAddressCmd() *cobra.Command {
	var addr types.PostalAddress

	cmd := &cobra.Command{
		Use:   "address PROPERTY",
		Short: "Change the postal address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.ChangeAddress(ctx, property, addr)
				if err != nil {
					return err
				}
				return printReceipt("Postal address changed", r)
			})
		},
	}
	cmd.Flags().StringVar(&addr.LineOne, "line1", "", "First address line")
	cmd.Flags().StringVar(&addr.LineTwo, "line2", "", "Second address line")
	cmd.Flags().StringVar(&addr.Zip, "zip", "", "Postal code")
	cmd.Flags().StringVar(&addr.Country, "country", "", "Country (ISO 3166 code)")
	return cmd
}

func newPropertyLocationCmd() *cobra.Command {
	var loc types.Location

	cmd := &cobra.Command{
		Use:   "location PROPERTY",
		Short: "Change timezone and GPS position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.ChangeLocation(ctx, property, loc)
				if err != nil {
					return err
				}
				return printReceipt("Location changed", r)
			})
		},
	}
	cmd.Flags().Uint64Var(&loc.Timezone, "timezone", 0, "Timezone identifier")
	cmd.Flags().Float64Var(&loc.Latitude, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&loc.Longitude, "long", 0, "Longitude in degrees")
	return cmd
}

func newPropertyImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Add or remove property images",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add PROPERTY URL",
		Short: "Append an image URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.AddPropertyImage(ctx, property, args[1])
				if err != nil {
					return err
				}
				return printReceipt("Image added", r)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove PROPERTY INDEX",
		Short: "Clear the image at INDEX",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid image index %q", args[1])
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.RemovePropertyImage(ctx, property, index)
				if err != nil {
					return err
				}
				return printReceipt("Image removed", r)
			})
		},
	})
	return cmd
}

// parseRange builds a day range from a check-in date and a night count.
func parseRange(from string, nights uint32) (types.DayRange, error) {
	day, err := codec.ParseDate(from)
	if err != nil {
		return types.DayRange{}, err
	}
	rng := types.DayRange{From: day, Count: nights}
	return rng, rng.Validate()
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func unitAndProperty(args []string) (common.Address, common.Address, error) {
	property, err := parseAddress("property", args[0])
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	unit, err := parseAddress("unit", args[1])
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return property, unit, nil
}
