package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/pricing"
)

func newTotalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Price order lines without touching any store",
		Long: `Price a set of order lines with the same rules the API applies.

Lines are given as NAME:PRICE[:QTY]. Lines named like a charge ("GST",
"Delivery Charge", ...) are read as synthetic charge lines.`,
		Example: `  orders totals --item Widget:100:2 --gst-percent 18 --delivery 40
  orders totals --mode checkout --item Widget:100 --client-total 130
  orders totals --mode update --item Widget:100 --stored-gst-percent 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawItems, _ := cmd.Flags().GetStringArray("item")
			mode, _ := cmd.Flags().GetString("mode")

			lines := make([]pricing.Line, 0, len(rawItems))
			for _, raw := range rawItems {
				line, err := parseLine(raw)
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}

			opts, err := modeOptions(mode)
			if err != nil {
				return err
			}

			in := pricing.ChargeInputs{
				GSTPercent:     amountFlag(cmd, "gst-percent"),
				DeliveryCharge: amountFlag(cmd, "delivery"),
				ClientTotal:    amountFlag(cmd, "client-total"),
			}
			if opts.IsUpdate {
				opts.Stored = &pricing.ChargeInputs{
					GSTPercent:     amountFlag(cmd, "stored-gst-percent"),
					DeliveryCharge: amountFlag(cmd, "stored-delivery"),
				}
			}

			calc := pricing.NewCalculator(pricing.NewVocabulary(a.cfg.Pricing.GSTLineNames, a.cfg.Pricing.DeliveryLineNames))
			totals := calc.Calculate(lines, in, opts).Rounded()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(totals)
		},
	}

	cmd.Flags().StringArray("item", nil, "order line as NAME:PRICE[:QTY] (repeatable)")
	cmd.Flags().String("mode", "create", "pricing context: create, update or checkout")
	cmd.Flags().String("gst-percent", "", "GST percent")
	cmd.Flags().String("delivery", "", "delivery charge")
	cmd.Flags().String("client-total", "", "total payable sent by the client")
	cmd.Flags().String("stored-gst-percent", "", "GST percent already on the order (update mode)")
	cmd.Flags().String("stored-delivery", "", "delivery charge already on the order (update mode)")

	return cmd
}

// parseLine reads NAME:PRICE[:QTY]. The name may itself contain colons.
func parseLine(raw string) (pricing.Line, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return pricing.Line{}, fmt.Errorf("invalid item %q: want NAME:PRICE[:QTY]", raw)
	}

	qty := 1
	if len(parts) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			qty = n
			parts = parts[:len(parts)-1]
		}
	}

	price := parts[len(parts)-1]
	name := strings.TrimSpace(strings.Join(parts[:len(parts)-1], ":"))
	if name == "" {
		return pricing.Line{}, fmt.Errorf("invalid item %q: name is required", raw)
	}

	return pricing.Line{
		Name:      name,
		UnitPrice: pricing.ParseAmount(price),
		Quantity:  qty,
	}, nil
}

func modeOptions(mode string) (pricing.Options, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "create":
		return pricing.Options{}, nil
	case "checkout":
		return pricing.Options{TrustClientTotal: true}, nil
	case "update":
		return pricing.Options{IsUpdate: true}, nil
	default:
		return pricing.Options{}, fmt.Errorf("unknown mode %q", mode)
	}
}

// amountFlag is nil unless the flag was given on the command line.
func amountFlag(cmd *cobra.Command, name string) *decimal.Decimal {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	return pricing.ParseOptionalAmount(&value)
}
