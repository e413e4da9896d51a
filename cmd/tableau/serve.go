package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/tableau"
	"github.com/aretw0/tableau/internal/config"
	"github.com/aretw0/tableau/internal/presentation/tui"
	mqttAdapter "github.com/aretw0/tableau/pkg/adapters/mqtt"
	redisAdapter "github.com/aretw0/tableau/pkg/adapters/redis"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/observability"
	"github.com/aretw0/tableau/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scene server",
	Long: `Builds the scene from the configured capture and serves it over HTTP.

Viewers connect to /events (SSE). Batches are mirrored to Redis and MQTT when
configured. With redis.lock set, the server holds a Redis lock for its whole
lifetime so that only one server is authoritative for the scene.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("autoplay") {
			cfg.Playback.Autoplay, _ = cmd.Flags().GetBool("autoplay")
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			opts      []tableau.Option
			snapshots []func(*tableau.Server) error
		)
		var metrics *observability.Metrics
		if cfg.Server.Metrics {
			metrics = observability.NewMetrics()
			opts = append(opts, tableau.WithMetrics(metrics))
		}
		opts = append(opts, tableau.WithLifecycleHooks(observability.LoggingHooks(logger)))

		if cfg.Redis.Addr != "" {
			release, pub, err := setupRedis(ctx, cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer release()
			opts = append(opts, tableau.WithMirror(pub))
			snapshots = append(snapshots, func(s *tableau.Server) error {
				return pub.SaveSnapshot(context.Background(), s.Scene.Snapshot())
			})
		}

		if cfg.MQTT.Broker != "" {
			client, err := mqttAdapter.Connect(mqttAdapter.Config{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID}, logger)
			if err != nil {
				return err
			}
			defer client.Disconnect(250)
			c, _ := codec.ByName(cfg.MQTT.Codec)
			pub := mqttAdapter.NewPublisher(client, mqttAdapter.Config{
				Broker: cfg.MQTT.Broker,
				Topic:  cfg.MQTT.Topic,
				QoS:    cfg.MQTT.QoS,
			}, mqttAdapter.WithCodec(c), mqttAdapter.WithLogger(logger))
			opts = append(opts, tableau.WithMirror(pub), tableau.WithGUIObserver(pub.PublishGUI))
			snapshots = append(snapshots, func(s *tableau.Server) error {
				return pub.PublishSnapshot(s.Scene.Snapshot())
			})
		}

		srv, err := startServer(ctx, cfg, logger, opts...)
		if err != nil {
			return err
		}
		saveSnapshots := func() {
			for _, save := range snapshots {
				if err := save(srv); err != nil {
					logger.Warn("Snapshot mirror failed", "err", err)
				}
			}
		}
		saveSnapshots()
		defer saveSnapshots()

		if cfg.Playback.Autoplay {
			if err := srv.Playback.Play(ctx); err != nil {
				return err
			}
		}

		httpServer := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: srv.Handler(),
			// Request contexts end with ctx so that open SSE streams close on shutdown.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		tui.PrintBanner(cmd.ErrOrStderr(), tableau.Version, cfg.Server.Addr)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			logger.Info("Starting Tableau Server", "addr", httpServer.Addr, "frames", srv.Playback.NumFrames())
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Start shutdown...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return httpServer.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("Tableau Server stopped gracefully")
		return nil
	},
}

// setupRedis connects, optionally takes the authority lock, and returns the
// publisher sink with a function releasing everything.
func setupRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (func(), *redisAdapter.Publisher, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}

	release := func() { client.Close() }
	if cfg.Lock {
		logger.Info("Acquiring scene lock", "key", cfg.LockKey)
		var locker ports.DistributedLocker = redisAdapter.NewLocker(client, cfg.Prefix).WithLogger(logger)
		unlock, err := locker.Hold(ctx, cfg.LockKey, cfg.LockTTL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		release = func() {
			if err := unlock(context.Background()); err != nil {
				logger.Warn("Scene lock release failed", "err", err)
			}
			client.Close()
		}
	}

	c, _ := codec.ByName(cfg.Codec)
	pub := redisAdapter.NewPublisher(client, redisAdapter.WithPrefix(cfg.Prefix), redisAdapter.WithCodec(c))
	return release, pub, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides the config file)")
	serveCmd.Flags().Bool("autoplay", false, "Start playing as soon as the scene is built")
}
