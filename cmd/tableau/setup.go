package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tableau"
	"github.com/aretw0/tableau/internal/config"
	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/adapters/memory"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/spf13/cobra"
)

// loadConfig reads the --config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("frames") {
		cfg.Source.Frames, _ = cmd.Flags().GetInt("frames")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	format, _ := logging.ParseFormat(cfg.LogFormat)
	logger := logging.NewWithFormat(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// startServer builds the synthetic capture and the scene around it.
func startServer(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...tableau.Option) (*tableau.Server, error) {
	src := memory.NewSynthetic(memory.SyntheticConfig{
		Frames:      cfg.Source.Frames,
		Points:      cfg.Source.Points,
		FPS:         cfg.Source.FPS,
		ImageWidth:  cfg.Source.ImageWidth,
		ImageHeight: cfg.Source.ImageHeight,
	})

	opts = append([]tableau.Option{
		tableau.WithLogger(logger),
		tableau.WithViewerBuffer(cfg.Server.ViewerBuffer),
		tableau.WithPlaybackOptions(
			playback.WithMaxFrames(cfg.Playback.MaxFrames),
			playback.WithDownsample(cfg.Playback.Downsample),
			playback.WithPointSize(cfg.Playback.PointSize),
			playback.WithFrustumScale(cfg.Playback.FrustumScale),
			playback.WithProgress(func(done, total int) {
				if done == total || done%10 == 0 {
					logger.Info("Frames built", "done", done, "total", total)
				}
			}),
		),
	}, opts...)

	srv := tableau.New(src, opts...)
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}
	return srv, nil
}
