package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	cfgpkg "github.com/ordnungswidrig/dynalog/internal/config"
	"github.com/ordnungswidrig/dynalog/internal/metrics"
	"github.com/ordnungswidrig/dynalog/internal/store/dynamo"
	"github.com/ordnungswidrig/dynalog/internal/store/pebblestore"
	"github.com/ordnungswidrig/dynalog/internal/txlog"
	logpkg "github.com/ordnungswidrig/dynalog/pkg/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dynalog",
		Short: "dynalog CLI",
		Long:  "dynalog is a durable, totally-ordered append log over a conditional-write table. This CLI appends, tails and inspects a log partition.",
	}
	pf := rootCmd.PersistentFlags()
	pf.String("config", os.Getenv("DYNALOG_CONFIG"), "Config file (JSON or YAML)")
	pf.String("backend", "", "Store backend: dynamo|pebble")
	pf.String("table", "", "DynamoDB table name")
	pf.String("partition", "", "Log partition")
	pf.String("region", "", "AWS region")
	pf.String("endpoint", "", "DynamoDB endpoint override (e.g. DynamoDB Local)")
	pf.String("data-dir", "", "Pebble data directory (pebble backend)")
	pf.String("log-level", os.Getenv("DYNALOG_LOG_LEVEL"), "Log level: debug|info|warn|error")
	pf.String("log-format", os.Getenv("DYNALOG_LOG_FORMAT"), "Log format: text|json")
	pf.String("metrics", "", "Serve Prometheus metrics on this address (tail --follow)")

	appendCmd := &cobra.Command{
		Use:   "append [payload]",
		Short: "Append a payload and print its assigned sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openLog(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				payload, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			res, err := env.log.Submit(ctx, payload).Force(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sequence=%d commit_time=%d\n", res.Sequence, res.CommitTime)
			return nil
		},
	}
	rootCmd.AddCommand(appendCmd)

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print entries after a watermark",
		RunE: func(cmd *cobra.Command, args []string) error {
			after, _ := cmd.Flags().GetInt64("after")
			follow, _ := cmd.Flags().GetBool("follow")
			pollMs, _ := cmd.Flags().GetInt("poll-ms")

			ctx, cancel := signalContext()
			defer cancel()
			env, err := openLog(cmd)
			if err != nil {
				return err
			}
			defer env.close()
			if env.cfg.MetricsAddr != "" {
				metrics.Serve(env.cfg.MetricsAddr, env.logger)
			}

			watermark := after
			for {
				cur := env.log.Tail(watermark)
				for {
					e, ok := cur.Next(ctx)
					if !ok {
						break
					}
					watermark = e.Sequence
					fmt.Printf("%d\t%d\t%s\n", e.Sequence, e.CommitTime, e.Payload)
				}
				if err := cur.Err(); err != nil {
					env.logger.Warn("tail stopped abnormally; reopening", logpkg.Err(err))
				}
				cur.Close()
				if !follow || ctx.Err() != nil {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Duration(pollMs) * time.Millisecond):
				}
			}
		},
	}
	tailCmd.Flags().Int64("after", 0, "Exclusive sequence watermark to start after")
	tailCmd.Flags().Bool("follow", false, "Keep polling for new entries")
	tailCmd.Flags().Int("poll-ms", 500, "Polling interval when following")
	rootCmd.AddCommand(tailCmd)

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the latest committed sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openLog(cmd)
			if err != nil {
				return err
			}
			defer env.close()
			seq, ok, err := env.log.LatestSequence(ctx)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("none")
				return nil
			}
			fmt.Println(seq)
			return nil
		},
	}
	rootCmd.AddCommand(latestCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print a best-effort table health snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openLog(cmd)
			if err != nil {
				return err
			}
			defer env.close()
			st := env.log.Status(ctx)
			if !st.Available {
				fmt.Println("status: unavailable")
				return nil
			}
			fmt.Printf("table=%s state=%s items=%d size_bytes=%d\n", st.Table, st.State, st.ItemCount, st.SizeBytes)
			return nil
		},
	}
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env bundles everything a subcommand needs.
type env struct {
	cfg    cfgpkg.Config
	logger logpkg.Logger
	log    *txlog.Log
	close  func()
}

// openLog resolves config from file, environment and flags, then wires the
// selected backend into a txlog facade.
func openLog(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return nil, err
	}
	cfgpkg.FromEnv(&cfg)
	overlayFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	logpkg.RedirectStdLog(logger)

	e := &env{cfg: cfg, logger: logger, close: func() {}}
	switch cfg.Backend {
	case cfgpkg.BackendPebble:
		dataDir := cfg.Pebble.DataDir
		if dataDir == "" {
			dataDir = cfgpkg.DefaultDataDir()
		}
		st, err := pebblestore.Open(pebblestore.Options{
			DataDir:       dataDir,
			Fsync:         parseFsync(cfg.Pebble.Fsync),
			FsyncInterval: time.Duration(cfg.Pebble.FsyncIntervalMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		e.close = func() { _ = st.Close() }
		e.log, err = txlog.Open(txlog.Options{
			Store:       st,
			Partition:   cfg.Partition,
			PageSize:    cfg.PageSize,
			RetryBudget: cfg.RetryBudget,
			Logger:      logger,
			Hook:        metrics.NewHook(cfg.Partition),
		})
		if err != nil {
			e.close()
			return nil, err
		}
	case cfgpkg.BackendDynamo:
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Dynamo.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Dynamo.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Dynamo.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Dynamo.Endpoint)
			}
		})
		e.log, err = txlog.Open(txlog.Options{
			Store:       dynamo.New(client, cfg.Dynamo.Table),
			Partition:   cfg.Partition,
			PageSize:    cfg.PageSize,
			RetryBudget: cfg.RetryBudget,
			Logger:      logger,
			Hook:        metrics.NewHook(cfg.Partition),
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return e, nil
}

func overlayFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("table"); v != "" {
		cfg.Dynamo.Table = v
	}
	if v, _ := cmd.Flags().GetString("partition"); v != "" {
		cfg.Partition = v
	}
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		cfg.Dynamo.Region = v
	}
	if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
		cfg.Dynamo.Endpoint = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Pebble.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("metrics"); v != "" {
		cfg.MetricsAddr = v
	}
}

func newLogger(cfg cfgpkg.Config) logpkg.Logger {
	level, err := logpkg.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logpkg.InfoLevel
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if cfg.LogFormat == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	return logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
}

func parseFsync(s string) pebblestore.FsyncMode {
	switch s {
	case "never":
		return pebblestore.FsyncModeNever
	case "interval":
		return pebblestore.FsyncModeInterval
	default:
		return pebblestore.FsyncModeAlways
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
