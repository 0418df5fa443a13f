package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/config"
	"github.com/pissten/SMARTi-EMS/internal/gateway"
	"github.com/pissten/SMARTi-EMS/internal/handlers"
	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/metrics"
	"github.com/pissten/SMARTi-EMS/internal/repository"
	"github.com/pissten/SMARTi-EMS/internal/repository/db"
	"github.com/pissten/SMARTi-EMS/internal/server"
	"github.com/pissten/SMARTi-EMS/internal/service"
)

const shutdownTimeout = 10 * time.Second

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *sql.DB
	gw       gateway.Gateway
	metrics  *metrics.Metrics
	services *service.Service
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func newApp(ctx context.Context, opts config.Options) (*app, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a := &app{cfg: cfg, log: logger.Get(cfg.LogLevel)}

	a.db, err = db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite %s: %w", cfg.DBPath, err)
	}
	a.closers = append(a.closers, func() {
		if cerr := a.db.Close(); cerr != nil {
			a.log.Errorw("sqlite_close_failed", "err", cerr)
		}
	})

	docs, err := openDocumentStore(cfg, a.db)
	if err != nil {
		a.close()
		return nil, err
	}

	if err := a.openGateway(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.metrics = metrics.New()
	a.services = service.NewService(repository.NewRepository(a.db, docs), a.gw, service.Options{
		Engine: service.EngineOptions{
			ActionDelay:       cfg.Engine.ActionDelay,
			HoldOnSensorFault: cfg.Engine.HoldOnSensorFault,
		},
		Auth: service.AuthOptions{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
		Metrics: a.metrics,
		Log:     a.log,
	})
	return a, nil
}

// openDocumentStore picks where Configuration and RuntimeState live. nil keeps
// them in the sqlite database.
func openDocumentStore(cfg *config.Config, conn *sql.DB) (repository.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.StoreFile:
		docs, err := repository.NewDocumentFile(cfg.Store.Dir)
		if err != nil {
			return nil, fmt.Errorf("open document dir %s: %w", cfg.Store.Dir, err)
		}
		return docs, nil
	default:
		return repository.NewDocumentSQLite(conn), nil
	}
}

func (a *app) openGateway(ctx context.Context) error {
	switch a.cfg.Gateway.Transport {
	case config.TransportMQTT:
		c := gateway.NewMQTTClient(gateway.MQTTConfig{
			Broker:            a.cfg.MQTT.Broker,
			Username:          a.cfg.MQTT.Username,
			Password:          a.cfg.MQTT.Password,
			ClientID:          a.cfg.MQTT.ClientID,
			StatestreamPrefix: a.cfg.MQTT.StatestreamPrefix,
			CallServiceTopic:  a.cfg.MQTT.CallServiceTopic,
			PublishTimeout:    a.cfg.Gateway.Timeout,
		}, a.log)
		if err := c.Connect(ctx); err != nil {
			return fmt.Errorf("connect mqtt %s: %w", a.cfg.MQTT.Broker, err)
		}
		a.closers = append(a.closers, c.Close)
		a.gw = c
	default:
		a.gw = gateway.NewRESTClient(a.cfg.Gateway.URL, a.cfg.Gateway.Token, a.cfg.Gateway.Timeout)
	}
	a.log.Infow("gateway_ready", "transport", a.cfg.Gateway.Transport)
	return nil
}

func runServe(parent context.Context, opts config.Options) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	h := handlers.NewHandler(a.services, a.log, handlers.Options{
		AuthEnabled: a.cfg.Auth.Enabled,
		Metrics:     a.metrics.Handler(),
		Background:  ctx,
	})

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.services.Scheduler.Run(ctx, a.cfg.Engine.LoopInterval)
	}()

	srv := &server.Server{}
	srvErr := make(chan error, 1)
	go func() {
		a.log.Infow("http_listen", "port", a.cfg.Port, "auth", a.cfg.Auth.Enabled)
		srvErr <- srv.Run(a.cfg.Port, h.InitRoutes())
	}()

	select {
	case <-ctx.Done():
		a.log.Infow("shutting_down")
	case err = <-srvErr:
		a.log.Errorw("http_server_failed", "err", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		a.log.Errorw("http_shutdown_failed", "err", serr)
	}
	// the scheduler and API-started cycles return at their next pacing wait
	<-loopDone
	h.Wait()
	return err
}

func runStep(parent context.Context, opts config.Options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.services.Engine.Step(ctx)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return writeJSON(out, rep)
}

func runConfigShow(ctx context.Context, opts config.Options, out io.Writer) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	conn, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init sqlite %s: %w", cfg.DBPath, err)
	}
	defer conn.Close()

	docs, err := openDocumentStore(cfg, conn)
	if err != nil {
		return err
	}
	repos := repository.NewRepository(conn, docs)

	budget, err := repos.ConfigRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	state, err := repos.StateRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load runtime state: %w", err)
	}
	return writeJSON(out, map[string]any{
		"configuration": budget,
		"runtime_state": state,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
