package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"cache-store-api/internal/cache"
	"cache-store-api/internal/config"
	"cache-store-api/internal/logging"
	"cache-store-api/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	configPath string
	storageCfg = config.Default().Storage
	timeout    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cachectl",
		Short: "Inspect and edit a cache store",
		Long:  "Read and write cache entries directly in a table or directory backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file (flags override it)")
	flags.StringVar(&storageCfg.Backend, "backend", storageCfg.Backend, "Storage backend: table or directory")
	flags.StringVar(&storageCfg.DatabasePath, "db", storageCfg.DatabasePath, "SQLite database path (table backend)")
	flags.StringVar(&storageCfg.Table, "table", storageCfg.Table, "Cache table name (table backend)")
	flags.StringVar(&storageCfg.Directory, "dir", storageCfg.Directory, "Cache directory (directory backend)")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for the whole command")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		getCmd(),
		setCmd(),
		hasCmd(),
		deleteCmd(),
		clearCmd(),
		keysCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the config file under the flags the user actually set.
func loadConfig(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	logging.SetLevelFromString(level)

	if configPath == "" {
		return nil
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("backend") {
		storageCfg.Backend = cfg.Storage.Backend
	}
	if !flags.Changed("db") {
		storageCfg.DatabasePath = cfg.Storage.DatabasePath
	}
	if !flags.Changed("table") {
		storageCfg.Table = cfg.Storage.Table
	}
	if !flags.Changed("dir") {
		storageCfg.Directory = cfg.Storage.Directory
	}
	return nil
}

func openPool() (*cache.Pool, cache.Storage, error) {
	store, namespace, err := storage.Open(storageCfg)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewPool(store, namespace), store, nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func getCmd() *cobra.Command {
	var def string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openPool()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()

			item, err := pool.GetItem(ctx, args[0])
			if err != nil {
				return err
			}
			if !item.IsHit() {
				if cmd.Flags().Changed("default") {
					fmt.Fprintln(cmd.OutOrStdout(), def)
					return nil
				}
				return errors.Newf("%s: not found", args[0])
			}

			out, err := json.MarshalIndent(item.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if exp, ok := item.Expiration(); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "expires %s (in %s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&def, "default", "", "Print this instead of failing on a miss")
	return cmd
}

func setCmd() *cobra.Command {
	var (
		ttl    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if asJSON {
				if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
					return errors.Wrap(err, "value is not valid JSON")
				}
			}

			var raw any
			if ttl != "" {
				raw = ttl
			}
			parsed, err := cache.ParseTTL(raw)
			if err != nil {
				return err
			}

			pool, _, err := openPool()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()

			if err := cache.NewSimpleCache(pool).Set(ctx, args[0], value, parsed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s (ttl %s)\n", strings.TrimSpace(args[0]), parsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", "Time to live: seconds or a duration like 90s, 2h, 1d (empty = forever)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Parse the value as JSON")
	return cmd
}

func hasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Exit 0 when the key holds a live entry, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openPool()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()

			has, err := cache.NewSimpleCache(pool).Has(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), has)
			if !has {
				os.Exit(1)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openPool()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()

			ok, err := cache.NewSimpleCache(pool).DeleteMultiple(ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d key(s): %t\n", len(args), ok)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.Newf("refusing to clear %s without --yes", storageCfg.Namespace())
			}
			pool, _, err := openPool()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()

			if err := cache.NewSimpleCache(pool).Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", pool.Namespace())
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing the namespace")
	return cmd
}

func keysCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, store, err := openPool()
			if err != nil {
				return err
			}
			lister, ok := store.(cache.Lister)
			if !ok {
				return errors.Newf("backend %s cannot list keys", storageCfg.Backend)
			}
			ctx, cancel := withTimeout()
			defer cancel()

			keys, err := lister.Keys(ctx, pool.Namespace())
			if err != nil {
				return err
			}
			for _, key := range keys {
				if live {
					has, err := pool.HasItem(ctx, key)
					if err != nil {
						return err
					}
					if !has {
						continue
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Skip expired entries")
	return cmd
}
