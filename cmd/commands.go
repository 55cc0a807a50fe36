package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/victornm/tweetle/internal/catalog"
	"github.com/victornm/tweetle/internal/config"
	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/selector"
	"github.com/victornm/tweetle/internal/server"
	"github.com/victornm/tweetle/internal/telemetry"
)

const envPrefix = "TWEETLE"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tweetle",
		Short:         "Daily game: guess who wrote each tweet.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().SetNormalizeFunc(normalize)

	cmd.AddCommand(newServeCmd(), newTodayCmd(), newCatalogCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func newServeCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = os.Getenv("CONFIG_PATH")
			}

			c := server.DefaultConfig()
			fs := cmd.Flags()
			err := config.Load(path, &c,
				config.WithEnvPrefix(envPrefix),
				config.WithFlag("http.port", fs.Lookup("http-port")),
				config.WithFlag("grpc.port", fs.Lookup("grpc-port")),
				config.WithFlag("storage.backend", fs.Lookup("storage")),
				config.WithFlag("log.level", fs.Lookup("log-level")),
			)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if err := telemetry.SetupLogger(os.Stdout, c.Log.Level); err != nil {
				return err
			}

			s, err := server.Init(c)
			if err != nil {
				return fmt.Errorf("init server: %w", err)
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

			go s.Start()

			<-shutdown
			s.Shutdown()
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)
	fs.StringVarP(&path, "config", "c", "", "path to the config file (env: CONFIG_PATH)")
	fs.Int32("http-port", 8080, "HTTP port (env: TWEETLE_HTTP_PORT)")
	fs.Int32("grpc-port", 9090, "gRPC health port (env: TWEETLE_GRPC_PORT)")
	fs.String("storage", server.StorageMemory, "progress storage: memory, redis, postgres or sqlite (env: TWEETLE_STORAGE_BACKEND)")
	fs.String("log-level", "info", "log level (env: TWEETLE_LOG_LEVEL)")

	return cmd
}

func newTodayCmd() *cobra.Command {
	var (
		path     string
		timezone string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Print the puzzle scheduled for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("timezone %q: %w", timezone, err)
			}

			now := time.Now().In(loc)
			if date != "" {
				if now, err = time.ParseInLocation(time.DateOnly, date, loc); err != nil {
					return fmt.Errorf("date %q: %w", date, err)
				}
			}

			c, err := server.LoadCatalog(path)
			if err != nil {
				return err
			}

			p, err := selector.TodaysPuzzle(c, now)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tweetle #%d (%s): puzzle %d\n",
				dayindex.PuzzleNumber(dayindex.Index(now), 0), dayindex.DateString(now), p.ID)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)
	fs.StringVar(&path, "catalog", "", "puzzle file, the embedded puzzles when empty")
	fs.StringVar(&timezone, "timezone", "UTC", "timezone deciding the calendar date")
	fs.StringVar(&date, "date", "", "date as YYYY-MM-DD, today when empty")

	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect puzzle files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a puzzle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d puzzles OK\n", args[0], c.Len())
			return nil
		},
	})

	return cmd
}

func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
