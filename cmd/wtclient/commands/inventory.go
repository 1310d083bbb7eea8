package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/management"
)

// NewCategoryCmd creates the category command group
func NewCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage inventory categories of a property",
		Long: `Add, edit and remove the inventory categories (room types) of a property.

Adding a category deploys its contract, which needs the category artifact
configured under contracts.category_artifact.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add PROPERTY NAME",
		Short: "Deploy and register a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				addr, err := f.AddCategory(ctx, property, args[1])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(map[string]string{"category": addr.Hex()})
				}
				Success(fmt.Sprintf("Category %s deployed at %s", args[1], addr.Hex()))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove PROPERTY NAME",
		Short: "Unregister a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.RemoveCategory(ctx, property, args[1])
				if err != nil {
					return err
				}
				return printReceipt("Category removed", r)
			})
		},
	})

	cmd.AddCommand(newCategoryEditCmd())
	cmd.AddCommand(newCategoryAmenityCmd())
	cmd.AddCommand(newCategoryImageCmd())
	return cmd
}

func newCategoryEditCmd() *cobra.Command {
	var info management.CategoryInfo

	cmd := &cobra.Command{
		Use:   "edit PROPERTY NAME",
		Short: "Change description, occupancy and price text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.EditCategory(ctx, property, args[1], info)
				if err != nil {
					return err
				}
				return printReceipt("Category edited", r)
			})
		},
	}
	cmd.Flags().StringVar(&info.Description, "description", "", "Category description")
	cmd.Flags().Uint64Var(&info.MinGuests, "min-guests", 1, "Minimum guests")
	cmd.Flags().Uint64Var(&info.MaxGuests, "max-guests", 2, "Maximum guests")
	cmd.Flags().StringVar(&info.Price, "price", "", "Indicative price text, e.g. \"90 EUR\"")
	return cmd
}

func newCategoryAmenityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amenity",
		Short: "Add or remove amenity codes",
	}
	run := func(add bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			code, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amenity code %q", args[2])
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				if add {
					r, err := f.AddAmenity(ctx, property, args[1], code)
					if err != nil {
						return err
					}
					return printReceipt("Amenity added", r)
				}
				r, err := f.RemoveAmenity(ctx, property, args[1], code)
				if err != nil {
					return err
				}
				return printReceipt("Amenity removed", r)
			})
		}
	}
	cmd.AddCommand(&cobra.Command{Use: "add PROPERTY CATEGORY CODE", Args: cobra.ExactArgs(3), Short: "Add an amenity", RunE: run(true)})
	cmd.AddCommand(&cobra.Command{Use: "remove PROPERTY CATEGORY CODE", Args: cobra.ExactArgs(3), Short: "Remove an amenity", RunE: run(false)})
	return cmd
}

func newCategoryImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Add or remove category images",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add PROPERTY CATEGORY URL",
		Short: "Append an image URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.AddCategoryImage(ctx, property, args[1], args[2])
				if err != nil {
					return err
				}
				return printReceipt("Image added", r)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove PROPERTY CATEGORY INDEX",
		Short: "Clear the image at INDEX",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			index, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid image index %q", args[2])
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.RemoveCategoryImage(ctx, property, args[1], index)
				if err != nil {
					return err
				}
				return printReceipt("Image removed", r)
			})
		},
	})
	return cmd
}

// NewUnitCmd creates the unit command group
func NewUnitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Manage bookable units of a property",
		Long: `Add and remove units, open or close them for booking, and set prices.

Fiat prices are decimal amounts in the unit currency ("120.50").
Token prices are decimal token amounts ("1.5").

Examples:
  wtclient unit add 0xPROPERTY DOUBLE
  wtclient unit price 0xPROPERTY 0xUNIT 120.00
  wtclient unit special-price 0xPROPERTY 0xUNIT 150.00 --from 2026-12-24 --nights 3`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add PROPERTY CATEGORY",
		Short: "Deploy and register a unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := parseAddress("property", args[0])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				addr, err := f.AddUnit(ctx, property, args[1])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(map[string]string{"unit": addr.Hex()})
				}
				Success(fmt.Sprintf("Unit of %s deployed at %s", args[1], addr.Hex()))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove PROPERTY UNIT",
		Short: "Unregister a unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.RemoveUnit(ctx, property, unit)
				if err != nil {
					return err
				}
				return printReceipt("Unit removed", r)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "active PROPERTY UNIT on|off",
		Short: "Open or close a unit for booking",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			active, err := parseSwitch(args[2])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.SetUnitActive(ctx, property, unit, active)
				if err != nil {
					return err
				}
				return printReceipt("Unit state changed", r)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "price PROPERTY UNIT AMOUNT",
		Short: "Set the default fiat price per night",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			price, err := codec.ParsePrice(args[2])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.SetDefaultPrice(ctx, property, unit, price)
				if err != nil {
					return err
				}
				return printReceipt("Default price set", r)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "token-price PROPERTY UNIT AMOUNT",
		Short: "Set the default token price per night",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			price, err := codec.ParseToken(args[2])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.SetDefaultTokenPrice(ctx, property, unit, price)
				if err != nil {
					return err
				}
				return printReceipt("Default token price set", r)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "currency PROPERTY UNIT CODE",
		Short: "Set the unit currency (ISO 4217)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				r, err := f.SetCurrencyCode(ctx, property, unit, args[2])
				if err != nil {
					return err
				}
				return printReceipt("Currency set", r)
			})
		},
	})

	cmd.AddCommand(newSpecialPriceCmd("special-price", false))
	cmd.AddCommand(newSpecialPriceCmd("special-token-price", true))
	return cmd
}

func newSpecialPriceCmd(use string, token bool) *cobra.Command {
	var (
		from   string
		nights uint32
	)
	short := "Override the fiat price for a range of nights"
	if token {
		short = "Override the token price for a range of nights"
	}

	cmd := &cobra.Command{
		Use:   use + " PROPERTY UNIT AMOUNT",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, unit, err := unitAndProperty(args)
			if err != nil {
				return err
			}
			rng, err := parseRange(from, nights)
			if err != nil {
				return err
			}
			parse := codec.ParsePrice
			if token {
				parse = codec.ParseToken
			}
			price, err := parse(args[2])
			if err != nil {
				return err
			}
			return withFacade(cmd, func(ctx context.Context, f *management.Facade) error {
				set := f.SetSpecialPrice
				if token {
					set = f.SetSpecialTokenPrice
				}
				r, err := set(ctx, property, unit, price, rng)
				if err != nil {
					return err
				}
				return printReceipt(fmt.Sprintf("Price overridden for %d nights from %s", rng.Count, codec.FormatDay(rng.From)), r)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First night (YYYY-MM-DD)")
	cmd.Flags().Uint32Var(&nights, "nights", 1, "Number of nights")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
