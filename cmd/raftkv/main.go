// Command raftkv starts one replica of the cluster: it loads the
// cluster manifest, binds the datagram transport, and runs the Raft
// core's main loop until interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bbengfort/raftkv/internal/admin"
	"github.com/bbengfort/raftkv/internal/config"
	"github.com/bbengfort/raftkv/internal/raft"
	"github.com/bbengfort/raftkv/internal/transport"
)

var (
	manifestPath string
	verbose      bool
)

func main() {
	root := &cobra.Command{
		Use:   "raftkv",
		Short: "Run one replica of a Raft-replicated key/value store",
		RunE:  run,
	}
	root.Flags().StringVarP(&manifestPath, "config", "c", "", "path to the cluster manifest (YAML)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("raftkv exited with error")
	}
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(manifestPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info().Str("id", cfg.ID).Str("listen", cfg.ListenAddr).
		Int("peers", len(cfg.Peers)).Msg("starting replica")

	tr, err := transport.NewUDP(cfg.ID, cfg.ListenAddr, cfg.PeerAddrs())
	if err != nil {
		return err
	}
	defer tr.Close()

	replica := raft.New(cfg.ID, cfg.PeerIDs(), tr)

	if cfg.AdminAddr != "" {
		srv := &http.Server{Addr: cfg.AdminAddr, Handler: admin.NewServer(replica)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("admin server stopped")
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := replica.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
