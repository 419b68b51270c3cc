// Command sterlingd is the long-running ledger daemon: it owns the
// schema registry, claim store, conflict engine, operator ledger, and
// decision-packet assembler, and serves them over a Unix-socket
// JSON-RPC protocol (internal/rpc) to the sterling CLI. Grounded in the
// teacher's `bd daemon` subcommand, split into its own binary per
// SPEC_FULL.md's two-binary decision.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/config"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/obslog"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/rpc"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

func main() {
	configDir := "."
	if v := os.Getenv("STERLING_CONFIG_DIR"); v != "" {
		configDir = v
	}

	logger := obslog.New(os.Stderr, slog.LevelInfo)
	log := obslog.ForComponent(logger, "sterlingd")

	cfg, err := config.Load(configDir)
	if err != nil {
		log.Error("loading config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Error("creating data dir", "data_dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	witnesses, err := witness.Open(filepath.Join(cfg.DataDir, "witness.jsonl"))
	if err != nil {
		log.Error("opening witness store", "error", err)
		os.Exit(1)
	}
	defer witnesses.Close()

	registry := schema.New()
	claims := claimstore.New()
	conflicts := conflict.New()
	core := ledger.New(registry, claims, conflicts, witnesses)
	assembler := packet.NewAssembler(registry, claims, conflicts, 4)

	defaultIntent := governance.DEV
	if cfg.StrictDefault {
		defaultIntent = governance.CERTIFYING
	}
	if _, err := governance.NewContext(defaultIntent, witnesses); err != nil {
		log.Error("validating default governance intent", "error", err)
		os.Exit(1)
	}

	server := rpc.NewServer(cfg.Socket, registry, core, claims, conflicts, assembler, witnesses)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("starting sterlingd", "socket", cfg.Socket, "data_dir", cfg.DataDir, "storage_backend", cfg.StorageBackend)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := server.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, "sterlingd: stop error:", err)
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			log.Error("serving", "error", err)
			os.Exit(1)
		}
	}
}
