// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the flapjackd search server.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. Tenant Manager: opens every tenant directory already on disk under
//     Storage.DataDir
//  3. Memory Safety Layer: starts heap-pressure sampling
//  4. Secured-Key Engine: loads or seeds the key store
//  5. Replication Manager (optional): dials configured peers and starts
//     their health probe
//  6. Analytics pipeline (optional): starts an embedded NATS JetStream
//     server if configured, then the publisher, collector, query engine,
//     and retention sweeper
//  7. HTTP Server: the Algolia-compatible REST surface
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables prefixed FLAPJACK_, an optional
// config.yaml, then built-in defaults. See internal/config.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gridlhq/flapjack/internal/analytics"
	"github.com/gridlhq/flapjack/internal/api"
	"github.com/gridlhq/flapjack/internal/config"
	"github.com/gridlhq/flapjack/internal/logging"
	"github.com/gridlhq/flapjack/internal/memory"
	"github.com/gridlhq/flapjack/internal/replication"
	"github.com/gridlhq/flapjack/internal/securedkey"
	"github.com/gridlhq/flapjack/internal/supervisor"
	"github.com/gridlhq/flapjack/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting flapjackd")

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o750); err != nil {
		logging.Fatal().Err(err).Msg("failed to create storage data dir")
	}

	tenants := tenant.NewManager(cfg.Storage.DataDir, cfg.Storage.MaxConcurrentWriters, cfg.Storage.MaxDocumentBytes)
	memoryObserver := memory.New(cfg.Memory.ElevatedMB, cfg.Memory.CriticalMB)

	adminKey := cfg.Security.AdminAPIKey
	if adminKey == "" {
		adminKey, err = generateAdminKey()
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to generate an admin API key")
		}
		logging.Warn().Str("admin_api_key", adminKey).Msg("no FLAPJACK_SECURITY_ADMIN_API_KEY set, generated one for this run only")
	}
	keyStorePath := filepath.Join(cfg.Storage.DataDir, "keys.json")
	keyStore, err := securedkey.LoadOrCreate(keyStorePath, adminKey)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load secured-key store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	tenants.SetDataServiceRegistrar(func(svc tenant.SupervisedService) {
		tree.AddDataService(svc)
	})

	var replicationManager *replication.Manager
	if len(cfg.Replication.Peers) > 0 {
		peerConfigs := make([]replication.PeerConfig, len(cfg.Replication.Peers))
		for i, p := range cfg.Replication.Peers {
			peerConfigs[i] = replication.PeerConfig{NodeID: p.NodeID, Addr: p.Addr}
		}
		replicationManager = replication.NewManager(cfg.Replication.NodeID, peerConfigs)
		tenants.SetReplicationNotifier(replicationManager)
		tree.AddMessagingService(healthProbeService{manager: replicationManager})
		logging.Info().Int("peers", len(peerConfigs)).Str("node_id", cfg.Replication.NodeID).Msg("replication enabled")
	} else {
		logging.Info().Msg("replication disabled (no peers configured)")
	}

	analyticsCfg := analytics.Config{
		Enabled:              cfg.Analytics.Enabled,
		NATSURL:              cfg.Analytics.NATSURL,
		EmbeddedServer:       cfg.Analytics.EmbeddedServer,
		StoreDir:             cfg.Analytics.StoreDir,
		DataDir:              cfg.Analytics.DataDir,
		FlushSize:            cfg.Analytics.FlushSize,
		FlushInterval:        cfg.Analytics.FlushInterval,
		RetentionDays:        cfg.Analytics.RetentionDays,
		CorrelationCacheSize: cfg.Analytics.CorrelationCacheSize,
	}

	var analyticsPublisher *analytics.Publisher
	var analyticsQueries *analytics.QueryEngine
	var embeddedNATS *analytics.EmbeddedServer

	if analyticsCfg.Enabled {
		if analyticsCfg.EmbeddedServer {
			if err := os.MkdirAll(analyticsCfg.StoreDir, 0o750); err != nil {
				logging.Fatal().Err(err).Msg("failed to create NATS store dir")
			}
			embeddedNATS, err = analytics.StartEmbeddedServer(analyticsCfg)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to start embedded NATS JetStream server")
			}
			analyticsCfg.NATSURL = embeddedNATS.ClientURL()
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := embeddedNATS.Shutdown(shutdownCtx); err != nil {
					logging.Error().Err(err).Msg("error shutting down embedded NATS server")
				}
			}()
			logging.Info().Str("url", analyticsCfg.NATSURL).Msg("embedded NATS JetStream server started")
		}

		analyticsPublisher, err = analytics.NewPublisher(analyticsCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create analytics publisher")
		}

		collector, err := analytics.NewCollector(analyticsCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create analytics collector")
		}
		tree.AddMessagingService(collector)

		sweeper := analytics.NewRetentionSweeper(analyticsCfg, 24*time.Hour)
		tree.AddMessagingService(sweeper)

		analyticsQueries = analytics.NewQueryEngine(collector.DB(), analyticsCfg.DataDir)
		logging.Info().Str("data_dir", analyticsCfg.DataDir).Msg("analytics pipeline enabled")
	} else {
		analyticsPublisher, _ = analytics.NewPublisher(analyticsCfg)
		logging.Info().Msg("analytics pipeline disabled")
	}

	handler := api.NewHandler(tenants, keyStore, memoryObserver, replicationManager, analyticsPublisher, nil, cfg.Replication.NodeID)

	chiMiddlewareConfig := api.DefaultChiMiddlewareConfig()
	chiMiddlewareConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	chiMiddlewareConfig.RateLimitRequests = cfg.Security.RateLimitRequests
	chiMiddlewareConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	chiMiddleware := api.NewChiMiddleware(chiMiddlewareConfig)

	router := api.NewRouter(handler, chiMiddleware, memoryObserver, analyticsQueries, replicationManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(httpServerService{server: server, shutdownTimeout: cfg.Server.ShutdownTimeout})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("flapjackd stopped gracefully")
}

func generateAdminKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// healthProbeService adapts replication.Manager.StartHealthProbe, which
// has no return value, to suture.Service.
type healthProbeService struct {
	manager *replication.Manager
}

func (s healthProbeService) Serve(ctx context.Context) error {
	s.manager.StartHealthProbe(ctx, 15*time.Second)
	return nil
}

// httpServerService adapts http.Server to suture.Service.
type httpServerService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

func (s httpServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
