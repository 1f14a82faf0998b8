package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // profiling endpoints, mounted on the debug listener only
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/braidhq/braiddb/pkg/api"
	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/log"
	"github.com/braidhq/braiddb/pkg/memdb"
	"github.com/braidhq/braiddb/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "braidd",
	Short: "braidd - a causally-ordered, conflict-preserving key-value store",
	Long: `braidd serves a small key-value store whose writes replicate as an
operation-based CRDT: every write is an operation parented at the tips its
author had seen, and concurrent writes to the same key are preserved as a
multi-valued read rather than silently clobbered.

There is no persistence and no replication protocol in this binary -- it
serves a single in-memory node. Feeding it another node's operations, or
shipping its own operations elsewhere, is the embedder's job.`,
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"braidd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().String("addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("agent", "", "this node's agent string, used as version.agent on every write it assigns (default: a generated uuid)")
	rootCmd.Flags().String("metrics-addr", "", "if set, serve /metrics and /debug/pprof on this separate address (/metrics stays on --addr too)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// runServe starts an empty, in-memory MemDb and exposes it at --addr via
// GET/PUT /doc/{key}, a watch stream, and the health/ready/metrics trio
// (if --metrics-addr is set, a second listener serves /metrics and pprof;
// pprof is served nowhere else, while /metrics is also still served on
// --addr).
func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	agent, _ := cmd.Flags().GetString("agent")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if agent == "" {
		agent = uuid.NewString()
		log.Logger.Info().Str("agent", agent).Msg("no --agent given, generated one")
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	store := memdb.New(broker)
	server := api.NewServer(store, broker, agent)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		go func() {
			log.Logger.Info().Str("addr", metricsAddr).Msg("metrics/pprof listener starting")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics/pprof listener stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil {
			errCh <- err
		}
	}()
	log.Logger.Info().Str("addr", addr).Str("agent", agent).Msg("braidd serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
