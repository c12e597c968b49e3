// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-harvester CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/internal/config"
	"github.com/pdiddy/paper-harvester/internal/harvest"
	"github.com/pdiddy/paper-harvester/internal/logger"
	"github.com/pdiddy/paper-harvester/internal/secrets"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// exitInterrupted is the process status after SIGINT or SIGTERM.
const exitInterrupted = 130

// Loaded once per invocation by the root PersistentPreRunE.
var (
	cfg           types.Config
	log           = zap.NewNop()
	loadedSecrets secrets.Set
)

// flagKeys maps command flags to the configuration keys they override.
// Flags are bound for the executing command only, so several subcommands
// can define the same flag.
var flagKeys = map[string]string{
	"dir":            "download.dir",
	"ledger":         "download.ledger_path",
	"sessions-dir":   "download.sessions_dir",
	"batch-size":     "download.batch_size",
	"max-concurrent": "download.max_concurrent",
	"pages":          "download.pages_per_category",
	"max-retries":    "api.max_retries",
	"rate-limit":     "api.rate_limit",
	"timeout":        "api.timeout",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

var rootCmd = &cobra.Command{
	Use:   "paper-harvester",
	Short: "Harvest arXiv metadata and papers into a local archive",
	Long: `paper-harvester pulls article metadata from the arXiv API by category or
free-text query, downloads source archives and PDFs under a rate limit and a
concurrency cap, and records every successful download in an append-only
ledger so later runs skip what is already on disk.

Each run is saved as a session file; the ledger, sessions, response cache,
and article catalog all have inspection subcommands.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-harvester.yaml or ~/.config/paper-harvester/paper-harvester.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log encoding: console or json")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files")

	config.SetDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	used, err := config.ReadIn(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

func loadRuntime(cmd *cobra.Command, args []string) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		viper.Set("cache.enabled", false)
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log = l

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, log)
	if err != nil {
		return err
	}
	loadedSecrets = s
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.Debug("loaded secrets", zap.Strings("keys", keys))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, harvest.ErrInterrupted) {
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(exitInterrupted)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
