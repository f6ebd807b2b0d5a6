package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/reconcile"
	"github.com/ariefcatur/go-storefront-orders/internal/stripex"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Operate the storefront order store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newCatalogCmd(), newOrderCmd(), newReconcileCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the orders/order_items schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := postgres.Connect(cmd.Context(), cfg.StoreURL, cfg.StoreWriteKey)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Load().CatalogFile
			}
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cat.List())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file (default $CATALOG_FILE or built-in)")
	return cmd
}

type orderView struct {
	orders.Order
	Items []orders.OrderItem `json:"items"`
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <stripe-session-id>",
		Short: "Show the stored order for a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := postgres.Connect(cmd.Context(), cfg.StoreURL, cfg.StoreWriteKey)
			if err != nil {
				return err
			}
			defer db.Close()

			o, items, err := (&orders.Repo{DB: db}).GetBySession(cmd.Context(), args[0])
			if errors.Is(err, orders.ErrNotFound) {
				return fmt.Errorf("no order for session %s", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), orderView{Order: o, Items: items})
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <stripe-session-id>...",
		Short: "Re-run order finalization for sessions from processor data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.StripeSecretKey == "" {
				return config.ErrMissingStripeKey
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			db, err := postgres.Connect(cmd.Context(), cfg.StoreURL, cfg.StoreWriteKey)
			if err != nil {
				return err
			}
			defer db.Close()

			sc := stripex.New(cfg.StripeSecretKey, stripex.Options{Log: log})
			svc := &reconcile.Service{
				Sessions: sc,
				Finalizer: &orders.Finalizer{
					LineItems: sc,
					Store:     &orders.Repo{DB: db},
					Notifier:  orders.LogNotifier{Log: log},
					Log:       log,
				},
				Log: log,
			}

			var failed []error
			for _, id := range args {
				res, err := svc.Reconcile(cmd.Context(), id)
				if err != nil {
					failed = append(failed, err)
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", id, orders.OutcomeFailed, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, res.Outcome, res.OrderID)
			}
			return errors.Join(failed...)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
