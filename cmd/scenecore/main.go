package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/commands"
	"github.com/ajitpratap0/scenecore/internal/config"
	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/store"
	"github.com/ajitpratap0/scenecore/internal/undo"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

var (
	cfg     *config.Config
	cfgFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "scenecore",
		Short: "scenecore: typed scene projects with links and undo",
		Long:  "scenecore creates, edits, validates and exports scene projects made of typed objects, property links and references.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadFile(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.scenecore/config.yaml)")

	rootCmd.AddCommand(
		newCmd(),
		typesCmd(),
		runCmd(),
		exportCmd(),
		validateCmd(),
		statsCmd(),
		watchCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(logger *slog.Logger) (*store.FileStore, error) {
	return store.NewFileStore(nil, cfg.Project.Dir, logger)
}

// session is a loaded project ready for editing.
type session struct {
	ctx          *core.Context
	stack        *undo.Stack
	cmds         *commands.Interface
	featureLevel int
}

// openSession loads name from st and wires a context, undo stack and
// command interface around it.
func openSession(ctx context.Context, st store.Store, name string, logger *slog.Logger, opts ...core.Option) (*session, error) {
	factory := usertypes.NewFactory()
	res, err := st.Load(ctx, name, factory)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings.Flatten() {
		logger.Warn("load warning", "project", name, "warning", w)
	}
	level := res.FeatureLevel
	if level == 0 {
		level = cfg.Project.FeatureLevel
	}
	cctx := core.NewContext(res.Project, factory, logger, opts...)
	stack, err := undo.New(cctx, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("creating undo stack: %w", err)
	}
	ci := commands.New(cctx, stack, level, logger)
	ci.SetMergeEdits(cfg.Undo.MergeEdits)
	return &session{ctx: cctx, stack: stack, cmds: ci, featureLevel: level}, nil
}
