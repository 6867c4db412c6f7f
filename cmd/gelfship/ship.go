package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bitdabbler/gelf"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	initialScanBuf   = 64 * 1024
	maxLineBytes     = 1024 * 1024
	shutdownDeadline = 5 * time.Second
)

var shipCmd = &cobra.Command{
	Use:   "ship",
	Short: "Read lines from stdin and ship each as one GELF message",
	RunE:  runShip,
}

func init() {
	shipCmd.Flags().String("endpoint", "localhost:12201", "Collector endpoint as host:port")
	shipCmd.Flags().String("host", defaultSourceHost(), "Source host reported in every message")
	shipCmd.Flags().String("level", "info", "Severity for shipped lines (debug, info, warn, error)")
	shipCmd.Flags().String("compression", gelf.CompressionZlib, "Payload compression (zlib, gzip, none)")
	shipCmd.Flags().Int("queue-depth", 1024, "Capacity of the send queue")
	shipCmd.Flags().StringArray("field", nil, "Additional field as _name=value (repeatable)")
	shipCmd.Flags().Bool("verbose", false, "Log debug diagnostics to stderr")

	for _, name := range []string{
		"endpoint", "host", "level", "compression", "queue-depth", "field", "verbose",
	} {
		cobra.CheckErr(viper.BindPFlag(name, shipCmd.Flags().Lookup(name)))
	}
}

func runShip(cmd *cobra.Command, args []string) error {
	logger := setupLogging(viper.GetBool("verbose"))

	cfg, err := appenderConfig(
		viper.GetString("endpoint"),
		viper.GetString("host"),
		viper.GetStringSlice("field"),
	)
	if err != nil {
		return err
	}

	appender, err := gelf.New(cfg, &gelf.Options{
		Compression: viper.GetString("compression"),
		QueueDepth:  viper.GetInt("queue-depth"),
		Verbose:     viper.GetBool("verbose"),
	})
	if err != nil {
		return err
	}
	appender.Initialize()

	severity := gelf.ParseLevel(viper.GetString("level"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	lines := make(chan string)

	// reader: a scanner blocked on a quiet stdin only notices cancellation
	// at the next line, which is fine for a pipe-fed tool
	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, initialScanBuf), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return scanner.Err()
	})

	// shipper
	shipped := 0
	g.Go(func() error {
		for line := range lines {
			appender.Log(gelf.Record{Format: line, Severity: severity})
			shipped++
		}
		return nil
	})

	err = g.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if serr := appender.Shutdown(sctx); serr != nil {
		logger.Error("exited before the send queue drained", "err", serr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("done", "lines", shipped)
	return nil
}

// setupLogging points the CLI's own diagnostics at stderr, away from the
// stream being shipped.
func setupLogging(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	return logger
}

// appenderConfig assembles the loosely-typed configuration bundle for
// gelf.New. Field values that parse as numbers or booleans are passed
// through typed, so they serialize as JSON numbers and booleans rather than
// quoted strings.
func appenderConfig(endpoint, host string, fields []string) (map[string]any, error) {
	cfg := map[string]any{
		"endpoint": endpoint,
		"host":     host,
	}

	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("malformed field %q, expected _name=value", f)
		}
		cfg[name] = parseFieldValue(value)
	}

	return cfg, nil
}

func parseFieldValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return s
}

func defaultSourceHost() string {
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}
