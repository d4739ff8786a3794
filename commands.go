package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"configurator/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) open() (*application, error) {
	return buildApplication(c.cfg, c.logger, c.inMemory)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox syncer and the status consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signalContext(cmd)
			defer stop()
			return app.serve(ctx)
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		out    string
		filter services.AdminFilter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all orders as CSV",
		Long: `Writes every order, enriched with the owner's email, as CSV. Without --out
the file is named koenigsegg-orders-YYYY-MM-DD.csv; "-" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.close()

			orders, err := app.admin.ListAllOrders(cmd.Context())
			if err != nil {
				return err
			}
			orders = services.FilterOrders(orders, filter)

			if out == "" {
				out = services.ExportFilename(time.Now())
			}
			if out == "-" {
				return services.ExportCSV(cmd.OutOrStdout(), orders)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := writeAndClose(f, func(w io.Writer) error { return services.ExportCSV(w, orders) }); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d orders to %s\n", len(orders), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (\"-\" for stdout)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "only orders whose model, email or ID contains this")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only orders with this status")
	return cmd
}

// writeAndClose runs write against wc and always closes it. A close error is
// returned when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Set the status of an order",
		Long: `Moves an order along processing, manufacturing, quality_check, shipping,
delivered. The database is tried first, then local storage.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.close()

			store, err := app.orders.UpdateOrderStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s (%s store)\n", args[0], args[1], store)
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <user-id>",
		Short: "Follow the status of a user's orders",
		Long:  "Prints the user's order progress as JSON lines whenever it changes, until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.close()

			if interval <= 0 {
				interval = c.cfg.TrackerInterval
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			userID := args[0]
			services.NewStatusPoller(interval, c.logger).Run(ctx,
				func(ctx context.Context) ([]services.StatusView, error) {
					return app.orders.TrackOrders(ctx, userID)
				},
				func(views []services.StatusView) {
					if err := enc.Encode(views); err != nil {
						c.logger.Warn("failed to write status views", zap.Error(err))
					}
				})
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default TRACKER_INTERVAL)")
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push orders held in local storage to the database once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer app.close()

			moved, err := app.outbox.Drain(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d orders\n", moved)
			return err
		},
	}
}
