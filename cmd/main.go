package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwrk-planet/presence-relay/config"
	"github.com/cwrk-planet/presence-relay/internal/eventlog"
	"github.com/cwrk-planet/presence-relay/internal/hub"
	"github.com/cwrk-planet/presence-relay/internal/memstore"
	"github.com/cwrk-planet/presence-relay/internal/metrics"
	"github.com/cwrk-planet/presence-relay/internal/security"
	"github.com/cwrk-planet/presence-relay/internal/service"
	grpcx "github.com/cwrk-planet/presence-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/presence-relay/internal/transport/http"
	"github.com/cwrk-planet/presence-relay/internal/transport/ws"
	"github.com/cwrk-planet/presence-relay/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- state ---
	rooms := memstore.NewRoomTable()
	connections := hub.New()
	events := eventlog.New(cfg.Events.Capacity)
	m := metrics.New(func() (int, int) { return connections.Count(), rooms.RoomCount() })
	relay := service.NewPresenceService(rooms, connections, events, m)

	// --- diagnostics auth ---
	passwords, err := security.NewPasswordChecker(cfg.Health.Password, cfg.Health.PasswordHash)
	if err != nil {
		log.Fatalf("health password: %v", err)
	}
	if !passwords.Configured() {
		slog.Warn("health password not set, diagnostics dashboard stays locked")
	}
	secret := []byte(cfg.Health.TokenSecret)
	if len(secret) == 0 {
		if secret, err = security.RandomBytes(32); err != nil {
			log.Fatalf("health token secret: %v", err)
		}
	}
	signer, err := security.NewAccessSigner(secret, cfg.Logging.Service, cfg.Health.TokenTTL, 5*time.Second)
	if err != nil {
		log.Fatalf("health signer: %v", err)
	}

	// --- WS & HTTP ---
	wsServer := ws.NewServer(relay, m, ws.Config{
		PingEvery:      cfg.WS.PingEvery,
		WriteWait:      cfg.WS.WriteWait,
		SendBuffer:     cfg.WS.SendBuffer,
		ReadLimit:      cfg.WS.ReadLimit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	handler := httpx.NewHandler(relay, events, passwords, signer, httpx.HealthConfig{
		CookieSecure: cfg.Health.CookieSecure,
		RefreshEvery: cfg.Health.RefreshEvery,
	})
	router := httpx.NewRouter(handler, signer, wsServer.HandleWS, m.Handler(), httpx.RouterConfig{
		StaticDir:      cfg.Static.Dir,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC health ---
	var grpcSrv *grpcx.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpcx.NewServer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events.Append("Server initialized")

	// --- run servers ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr, "health", "/health")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcSrv != nil {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			return grpcSrv.Serve(lis)
		})
	}

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.Shutdown(ctxShutdown)
		}
		return httpSrv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}
