// Package main implements seqctl, the admin CLI for sequence counters.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bizdesk/internal/config"
	"bizdesk/internal/infrastructure/numerator"
	"bizdesk/internal/infrastructure/storage"
	numfmt "bizdesk/pkg/numerator"
	"bizdesk/pkg/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seqctl: %v\n", err)
		os.Exit(1)
	}
}

// cli holds state shared by subcommands for one invocation.
type cli struct {
	out        io.Writer
	configPath string
	verbose    bool

	backend   *storage.Backend
	allocator *numerator.Service
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "seqctl",
		Short:         "Inspect and manage document number sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to YAML config (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "init <key>",
			Short: "Create the counter for key with its configured initial value",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withStore(c.runInit),
		},
		&cobra.Command{
			Use:   "next <key>",
			Short: "Issue the next number for key",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withStore(c.runNext),
		},
		&cobra.Command{
			Use:   "show <key>",
			Short: "Print the counter for key without changing it",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withStore(c.runShow),
		},
		&cobra.Command{
			Use:   "advance <key> <value>",
			Short: "Raise the counter so the next number is value+1",
			Args:  cobra.ExactArgs(2),
			RunE:  c.withStore(c.runAdvance),
		},
	)
	return root
}

// withStore opens the configured store around run.
func (c *cli) withStore(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		defer c.close()
		cmd.SetContext(ctx)
		return run(cmd, args)
	}
}

// open loads the config and connects the store. The returned context
// carries the logger.
func (c *cli) open(ctx context.Context) (context.Context, error) {
	cfg, err := config.Load(config.ResolvePath(c.configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	if c.verbose {
		if log, err = logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Development: true,
			OutputPaths: []string{"stderr"},
		}); err != nil {
			return nil, fmt.Errorf("initialize logger: %w", err)
		}
	}
	ctx = logger.WithLogger(ctx, log)

	c.backend, err = storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	c.allocator = numerator.New(c.backend.Counters, numerator.OptionsFromConfig(cfg.Numbering)...)
	return ctx, nil
}

func (c *cli) close() {
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}

func (c *cli) runInit(cmd *cobra.Command, args []string) error {
	key := args[0]
	if err := c.allocator.Initialize(cmd.Context(), key); err != nil {
		return err
	}
	return c.show(cmd.Context(), key)
}

func (c *cli) runNext(cmd *cobra.Command, args []string) error {
	number, err := c.allocator.NextNumber(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, number)
	return nil
}

func (c *cli) runShow(cmd *cobra.Command, args []string) error {
	return c.show(cmd.Context(), args[0])
}

func (c *cli) runAdvance(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("value %q is not an integer", args[1])
	}
	if err := c.allocator.Advance(cmd.Context(), args[0], value); err != nil {
		return err
	}
	return c.show(cmd.Context(), args[0])
}

func (c *cli) show(ctx context.Context, key string) error {
	counter, err := c.allocator.Current(ctx, key)
	if err != nil {
		return err
	}
	cfg := c.allocator.Config(key)

	fmt.Fprintf(c.out, "key:          %s\n", counter.Key)
	fmt.Fprintf(c.out, "value:        %d\n", counter.CurrentValue)
	fmt.Fprintf(c.out, "last number:  %s\n", numfmt.Format(cfg, counter.CurrentValue))
	fmt.Fprintf(c.out, "next number:  %s\n", numfmt.Format(cfg, counter.CurrentValue+1))
	fmt.Fprintf(c.out, "version:      %d\n", counter.Version)
	fmt.Fprintf(c.out, "last updated: %s\n", counter.LastUpdated.Format(time.RFC3339))
	return nil
}
