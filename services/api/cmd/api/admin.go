package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khoa21023/salebot-telegram/services/api/internal/adminclient"
)

// adminCmd groups the operator commands. They talk to a running API so the
// sweep sees the server's live reservations.
func adminCmd() *cobra.Command {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:8080")
	_ = v.BindEnv("api_url", "API_URL")
	_ = v.BindEnv("admin_token", "ADMIN_TOKEN")

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands against a running API",
	}
	cmd.PersistentFlags().String("api-url", "", "API base url (env API_URL)")
	cmd.PersistentFlags().String("admin-token", "", "admin token (env ADMIN_TOKEN)")
	_ = v.BindPFlag("api_url", cmd.PersistentFlags().Lookup("api-url"))
	_ = v.BindPFlag("admin_token", cmd.PersistentFlags().Lookup("admin-token"))

	client := func() *adminclient.Client {
		return adminclient.New(v.GetString("api_url"), v.GetString("admin_token"))
	}

	cmd.AddCommand(
		sweepCmd(client),
		settleCmd(client),
		stockCmd(client),
		addProductCmd(client),
		restockCmd(client),
		ordersCmd(client),
	)
	return cmd
}

func sweepCmd(client func() *adminclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Release stock held by reservations the server no longer tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d held items, released %d, failed %d\n",
				res.Scanned, res.Repaired, res.Failed)
			for _, id := range res.Stalled {
				fmt.Fprintf(cmd.OutOrStdout(), "stalled %s: paid but not delivered, run admin settle %s\n", id, id)
			}
			return nil
		},
	}
}

func settleCmd(client func() *adminclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <reservation-id>",
		Short: "Finish a paid reservation whose sale did not complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Settle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, order %s, %d items\n",
				res.ReservationID, res.Outcome, res.OrderID, res.Items)
			return nil
		},
	}
}

func stockCmd(client func() *adminclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "List products with available units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := client().Stock(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tAVAILABLE")
			for _, p := range products {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Price.String(), p.Available)
			}
			return w.Flush()
		},
	}
}

func addProductCmd(client func() *adminclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "add-product <id> <name> <price>",
		Short: "Register a product",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("price %q: %w", args[2], err)
			}
			p, err := client().AddProduct(cmd.Context(), args[0], args[1], price)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) at %s\n", p.ID, p.Name, p.Price.String())
			return nil
		},
	}
}

func restockCmd(client func() *adminclient.Client) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "restock <product-id>",
		Short: "Add user|password lines from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			lines, err := readLines(in)
			if err != nil {
				return err
			}
			res, err := client().Restock(cmd.Context(), args[0], lines)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d duplicates, %d invalid\n",
				res.Added, res.Duplicates, res.Invalid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "credentials file, - for stdin")
	return cmd
}

func ordersCmd(client func() *adminclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "orders <order-id|buyer-id>",
		Short: "Show sold lines for an order or a buyer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := client().Orders(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOLD AT\tORDER\tBUYER\tPRODUCT\tCREDENTIAL")
			for _, l := range lines {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					l.SoldAt.Format("2006-01-02 15:04"), l.OrderID, l.BuyerID, l.ProductName, l.Credential)
			}
			return w.Flush()
		},
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
