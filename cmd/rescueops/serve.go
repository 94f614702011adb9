package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rescueops/internal/admin"
	"rescueops/internal/command"
	"rescueops/internal/config"
	"rescueops/internal/events"
	"rescueops/internal/logging"
	"rescueops/internal/mission"
	"rescueops/internal/queue"
	"rescueops/internal/store"
	"rescueops/internal/telemetry"
)

var (
	serveConfigPath string
	serveSchemaPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mission control server",
	Long:  "serve connects to Postgres and RabbitMQ, hydrates mission state, and starts the telemetry pipelines, heartbeat monitor, and HTTP surface.",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(logging.New())

		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		state, err := pg.Hydrate(ctx)
		if err != nil {
			return err
		}
		log.Printf("[Main] hydrated %d missions", len(state.Missions))

		source, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer source.Close()
		sender, err := command.DialAMQPSender(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer sender.Close()

		hub := events.NewHub()
		pub := events.NewFanout(hub, &events.LogPublisher{
			Log: logging.Component(slog.Default(), "events"),
		})
		missions := mission.NewService(state, pg, pub, command.NewBroadcaster(sender))
		telStore := telemetry.NewStore()
		tracker := telemetry.NewTracker(cfg.HeartbeatTimeout())

		writer, cleanup, err := newRecordWriter(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		pipeline := telemetry.NewPipeline(source, telStore, tracker, missions, writer, pub)
		monitor := telemetry.NewMonitor(tracker, telStore, pub, cfg.HeartbeatCheckInterval())
		srv := admin.NewServer(missions, telStore, tracker, hub)

		g, gctx := errgroup.WithContext(ctx)
		for _, role := range mission.Roles() {
			role := role
			g.Go(func() error { return pipeline.Run(gctx, role) })
		}
		g.Go(func() error { return monitor.Run(gctx) })
		g.Go(func() error {
			log.Printf("[Main] listening on %s", cfg.ListenAddr)
			if err := srv.Start(gctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		err = g.Wait()
		log.Println("[Main] mission control stopped.")
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// newRecordWriter assembles the durable telemetry sink from config. Records
// always go somewhere; stdout is the fallback when no sink is configured.
func newRecordWriter(cfg *config.Config) (telemetry.RecordWriter, func(), error) {
	var writers []telemetry.RecordWriter
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	if cfg.Greptime.Enabled {
		gw, err := telemetry.NewGreptimeWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { gw.Close() })
		writers = append(writers, gw)
	}
	if cfg.TelemetryLog != "" {
		fw, err := telemetry.NewFileWriter(cfg.TelemetryLog)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { fw.Close() })
		writers = append(writers, fw)
	}
	switch len(writers) {
	case 0:
		log.Println("[Main] no telemetry sink configured, records go to STDOUT")
		return &telemetry.StdoutWriter{}, cleanup, nil
	case 1:
		return writers[0], cleanup, nil
	default:
		return telemetry.NewMultiWriter(writers...), cleanup, nil
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/rescueops.yaml", "Path to configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/rescueops.cue", "Path to CUE schema file")
}
