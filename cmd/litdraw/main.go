package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwtly10/litdraw"
	"github.com/jwtly10/litdraw/internal/cli"
	"github.com/jwtly10/litdraw/internal/config"
	"github.com/jwtly10/litdraw/internal/transformer"
)

var (
	configPath string
	debug      bool
	noBackup   bool
	toStdout   bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "litdraw [path]",
		Short: "Compile markdown documents into JavaScript draw modules",
		Long: `litdraw compiles a *.draw.md file, or every such file under a directory,
into a JavaScript module exporting draw(ctx).`,
		Version:           litdraw.VERSION,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE:              runCompile,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [dir]",
		Short: "Recompile documents under a directory as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a litdraw.yaml config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noBackup, "no-backup", false, "Do not back up existing output files")
	rootCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the compiled module of a single file to stdout")

	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config and installs the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath, os.Getenv)
	if err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if cfg.Path != "" {
		slog.Debug("loaded config", "path", cfg.Path)
	}
	return nil
}

func transformOptions() transformer.TransformOptions {
	opts := transformer.OptionsFromConfig(cfg)
	if noBackup {
		opts.NoBackup = true
	}
	return opts
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := pathArg(args)
	opts := transformOptions()
	slog.Debug("compiling", "path", path, "opts", opts.Pretty())

	if toStdout {
		return compileToStdout(path, opts)
	}

	results, err := cli.NewProcessor(cfg, opts).ProcessPath(path)
	printResults(os.Stdout, results)
	return err
}

func compileToStdout(path string, opts transformer.TransformOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts.WriterMode = litdraw.ModeBare
	return transformer.NewTransformer(opts).TransformTo(transformer.MarkdownSource{
		Content: f,
		Metadata: litdraw.MetaData{
			Source:    path,
			AbsSource: abs,
		},
	}, os.Stdout)
}

func runWatch(cmd *cobra.Command, args []string) error {
	w, err := cli.NewWatcher(cli.NewProcessor(cfg, transformOptions()), pathArg(args))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx)
}
