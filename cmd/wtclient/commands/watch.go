package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/windingtree/wt-client/internal/codec"
	"github.com/windingtree/wt-client/internal/config"
	"github.com/windingtree/wt-client/internal/events"
	"github.com/windingtree/wt-client/internal/logging"
	"github.com/windingtree/wt-client/internal/util"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var (
		properties    []string
		fromBlock     uint64
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow bookings and requests as they happen",
		Long: `Stream Book, CallStarted and CallFinish events of your properties.

Needs network.ws_endpoint. Past events are replayed from --from-block first
(default: genesis), then new ones are printed as they are mined. The stream
survives dropped connections. While watching, metrics are served on
metrics.listen and changes to the gas section of the config file take effect
without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if !s.client.CanSubscribe() {
					return fmt.Errorf("watch needs network.ws_endpoint to be configured")
				}
				props, err := s.propertiesOrOwn(ctx, properties)
				if err != nil {
					return err
				}
				if len(props) == 0 {
					Info("No properties to watch")
					return nil
				}

				set := events.NewPendingSet()
				if fromBlock > 0 {
					head, err := s.client.BlockNumber(ctx)
					if err != nil {
						return err
					}
					if err := s.reconciler.Resume(ctx, set, props, fromBlock, head); err != nil {
						return err
					}
				}

				listen := s.cfg.Metrics.Listen
				if cmd.Flags().Changed("metrics") {
					listen = metricsListen
				}
				if listen != "" {
					serveMetrics(ctx, listen, s)
				}

				util.SafeGoWithName("config-reload", func() {
					err := config.Watch(ctx, configPath(), func(c *config.Config) {
						if err := s.executor.Gas().SetPolicy(c.GasPolicy()); err != nil {
							logging.Warn("gas policy not applied", logging.Err(err))
						}
					})
					if err != nil {
						logging.Debug("config reload disabled", logging.Err(err))
					}
				})

				w := events.NewWatcher(s.client, s.decoder, s.metrics, props, set)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()

				Info(fmt.Sprintf("Watching %d properties (Ctrl-C to stop)", len(props)))
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-w.Events():
						if !ok {
							return nil
						}
						if err := printEvent(ev, set); err != nil {
							return err
						}
					}
				}
			})
		},
	}
	cmd.Flags().StringSliceVar(&properties, "property", nil, "Property address (repeatable; default: your properties)")
	cmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "First block to replay")
	cmd.Flags().StringVar(&metricsListen, "metrics", "", "Metrics listen address (overrides metrics.listen; empty disables)")
	return cmd
}

// serveMetrics exposes Prometheus metrics on /metrics and a JSON summary
// with endpoint health on /status.
func serveMetrics(ctx context.Context, addr string, s *session) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.metrics.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Metrics   any `json:"metrics"`
			Endpoints any `json:"endpoints"`
		}{snap, s.client.Endpoints()})
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	util.SafeGoWithName("metrics-server", func() {
		logging.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("metrics server stopped", logging.Err(err))
		}
	})
	util.SafeGoWithName("metrics-shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}

func printEvent(ev any, set *events.PendingSet) error {
	if jsonOutput() {
		return printJSON(struct {
			Type  string `json:"type"`
			Event any    `json:"event"`
		}{eventKind(ev), ev})
	}

	switch e := ev.(type) {
	case *events.Booked:
		fmt.Printf("%s %s unit %s, %d nights from %s, guest %s (block %d)\n",
			StatusBadge("booked"), e.Property.Hex(), e.Unit.Hex(), e.Range.Count,
			codec.FormatDay(e.Range.From), e.Requester.Hex(), e.Ref.BlockNumber)
	case *events.RequestStarted:
		state := "pending"
		if set.Finished(e.ContentHash) {
			state = "confirmed"
		}
		fmt.Printf("%s %s request %s from %s (block %d)\n",
			StatusBadge(state), e.Property.Hex(), e.ContentHash.Hex(), e.Requester.Hex(), e.Ref.BlockNumber)
	case *events.RequestFinished:
		fmt.Printf("%s %s request %s executed (block %d), %d outstanding\n",
			StatusBadge("confirmed"), e.Property.Hex(), e.ContentHash.Hex(), e.Ref.BlockNumber, len(set.Outstanding()))
	}
	return nil
}

func eventKind(ev any) string {
	switch ev.(type) {
	case *events.Booked:
		return "booked"
	case *events.RequestStarted:
		return "request_started"
	case *events.RequestFinished:
		return "request_finished"
	}
	return "unknown"
}
