package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/sterling/internal/config"
)

// doctorReport is the human- and JSON-renderable result of `sterling
// doctor`, a supplemented diagnostic surface with no spec-side RPC
// operation of its own: it only inspects the Env the root command
// already built.
type doctorReport struct {
	ConfigDir       string `json:"config_dir"`
	Socket          string `json:"socket"`
	DataDir         string `json:"data_dir"`
	StorageBackend  string `json:"storage_backend"`
	DaemonReached   bool   `json:"daemon_reached"`
	FallbackReason  string `json:"fallback_reason"`
	DataDirWritable bool   `json:"data_dir_writable"`
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Diagnose config, daemon reachability, and storage health",
	GroupID: "ops",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configDir)
		if err != nil {
			fatal(fmt.Errorf("sterling doctor: loading config: %w", err))
		}

		report := doctorReport{
			ConfigDir:      configDir,
			Socket:         cfg.Socket,
			DataDir:        cfg.DataDir,
			StorageBackend: cfg.StorageBackend,
			DaemonReached:  env.daemon(),
			FallbackReason: env.FallbackReason,
		}

		if err := os.MkdirAll(cfg.DataDir, 0o700); err == nil {
			probe := cfg.DataDir + "/.doctor-probe"
			if f, err := os.Create(probe); err == nil {
				f.Close()
				os.Remove(probe)
				report.DataDirWritable = true
			}
		}

		render(report, func() {
			fmt.Printf("config_dir:       %s\n", report.ConfigDir)
			fmt.Printf("socket:           %s\n", report.Socket)
			fmt.Printf("data_dir:         %s (writable=%v)\n", report.DataDir, report.DataDirWritable)
			fmt.Printf("storage_backend:  %s\n", report.StorageBackend)
			fmt.Printf("daemon_reached:   %v\n", report.DaemonReached)
			fmt.Printf("fallback_reason:  %s\n", report.FallbackReason)
		})
	},
}
