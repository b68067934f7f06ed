package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/cobra"

	"github.com/jwtly10/litdraw"
	"github.com/jwtly10/litdraw/internal/config"
	"github.com/jwtly10/litdraw/internal/lsp/server"
	"github.com/jwtly10/litdraw/internal/transformer"
)

var (
	debug      bool
	configPath string

	rootCmd = &cobra.Command{
		Use:          "litdraw-ls",
		Short:        "Language server reporting litdraw compile errors",
		Version:      litdraw.VERSION,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to a litdraw.yaml config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getLogFile returns a log file for the lsp server to write to.
//
// During development (--debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".litdraw")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "litdraw-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "litdraw-ls-*.log")
}

func run(cmd *cobra.Command, args []string) error {
	logFile, err := getLogFile(debug)
	if err != nil {
		return err
	}
	defer logFile.Close()

	// stdout carries the protocol
	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	} else {
		handler = slog.NewTextHandler(logFile, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting litdraw-ls", "logfile", logFile.Name())

	opts := server.DefaultServerOptions
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	final := transformer.OptionsFromConfig(cfg)
	// Saving in the editor only writes files that name their output
	final.RequirePragmaOutput = true
	opts.DocService.FinalTransformerOpts = final

	s, err := server.NewServer(opts)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return err
	}

	<-jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(server.NewStdRWC(), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()

	return nil
}
