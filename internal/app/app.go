// Package app wires the auditor service together.
package app

import (
	"context"
	"errors"
	"fmt"

	"haca/auth"
	"haca/internal/backup"
	"haca/internal/config"
	"haca/internal/db"
	"haca/internal/discovery"
	"haca/internal/engine"
	"haca/internal/hass"
	"haca/internal/history"
	"haca/internal/mqtt"
	"haca/internal/redis"
	"haca/internal/refactor"
	"haca/internal/registry"
	"haca/internal/scheduler"
	"haca/internal/taskqueue"
	"haca/internal/utils"
	"haca/internal/watcher"
	"haca/internal/web"
	"haca/internal/web/api"

	"golang.org/x/sync/errgroup"
)

// NewProvider returns the registry source selected by the configuration
func NewProvider(cfg *config.Config) (registry.Provider, func(), error) {
	switch cfg.RegistrySource {
	case config.RegistryWebsocket:
		client, err := hass.NewClient(hass.Config{URL: cfg.HassURL, Token: cfg.HassToken})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return registry.NewStorage(cfg.ConfigDir), func() {}, nil
	}
}

// Run starts every configured component and blocks until ctx is cancelled
// or a component fails
func Run(ctx context.Context, cfg *config.Config) error {
	log := utils.Logger("APP")

	provider, closeProvider, err := NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("registry provider: %w", err)
	}
	defer closeProvider()

	var opts []engine.Option

	if cfg.DBURL != "" {
		dbConn, err := db.NewDB(ctx, cfg.DBURL, cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("connect to DB: %w", err)
		}
		defer dbConn.Close()
		opts = append(opts, engine.WithHistory(dbConn))
	} else {
		opts = append(opts, engine.WithHistory(history.NewFile(cfg.ConfigDir, cfg.HistoryLimit)))
	}

	if cfg.RedisAddr != "" {
		cache := redis.NewCache(redis.NewRedisClient(cfg.RedisAddr), 0)
		if err := cache.Ping(ctx); err != nil {
			log.Warnf("Redis at %s unreachable, continuing without cache: %v", cfg.RedisAddr, err)
			_ = cache.Close()
		} else {
			defer cache.Close()
			opts = append(opts, engine.WithCache(cache))
		}
	}

	if cfg.MQTTBroker != "" {
		mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			log.Warnf("MQTT broker %s unreachable, continuing without notifications: %v", cfg.MQTTBroker, err)
		} else {
			defer mqttClient.Disconnect(250)
			opts = append(opts, engine.WithPublisher(mqtt.NewPublisher(mqttClient, cfg.MQTTTopicPrefix)))
		}
	}

	eng := engine.NewEngine(cfg.ConfigDir, provider, opts...)
	backups := backup.NewManager(cfg.ConfigDir)
	assistant := refactor.NewAssistant(cfg.ConfigDir, provider, backups)

	taskqueue.SetGlobalInstances(eng, assistant)
	if cfg.RedisAddr != "" {
		if err := taskqueue.StartWorkers(cfg.RedisAddr); err != nil {
			log.Warnf("Task queue unavailable, running work inline: %v", err)
		} else {
			defer taskqueue.StopWorkers()
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	// requestScan queues a scan when workers run, else scans in the caller
	requestScan := func(reason string) {
		if taskqueue.Running() {
			if err := taskqueue.EnqueueScan(reason); err == nil {
				return
			}
		}
		if _, err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Scan (%s) failed: %v", reason, err)
		}
	}

	sched := scheduler.NewScheduler()
	if err := sched.ScheduleScan(cfg.ScanSchedule(), func() { requestScan("schedule") }); err != nil {
		return fmt.Errorf("schedule scan: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	deps := api.Dependencies{
		Engine:    eng,
		Assistant: assistant,
		Backups:   backups,
	}
	if taskqueue.Running() {
		deps.EnqueueScan = taskqueue.EnqueueScan
		deps.EnqueueFix = taskqueue.EnqueueFix
	}
	authModule := auth.NewAuthModule(cfg.AdminUser, cfg.AdminPasswordHash, cfg.JWTSecret)
	server := web.NewWebServer(authModule, deps, cfg.ConfigDir)
	g.Go(func() error { return server.Start(ctx, cfg.HTTPAddr) })

	g.Go(func() error {
		requestScan("startup")
		return nil
	})

	if cfg.WatchFiles {
		w := watcher.New(cfg.ConfigDir, watcher.DocumentFiles, utils.DebounceWindow, func() { requestScan("file change") })
		g.Go(func() error { return w.Run(ctx) })
	}

	if cfg.MDNSName != "" {
		conn, err := discovery.Announce(cfg.MDNSName)
		if err != nil {
			log.Warnf("mDNS announcement failed: %v", err)
		} else {
			defer conn.Close()
		}
	}

	log.Infof("Auditing %s (registry: %s, schedule: %s)", cfg.ConfigDir, cfg.RegistrySource, cfg.ScanSchedule())
	err = g.Wait()
	log.Infof("Shutting down")
	return err
}

// NewOfflineEngine builds an engine for one-shot use, without the
// service sinks except the history file. Call the returned func when done.
func NewOfflineEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	provider, closeProvider, err := NewProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	hist := engine.WithHistory(history.NewFile(cfg.ConfigDir, cfg.HistoryLimit))
	return engine.NewEngine(cfg.ConfigDir, provider, hist), closeProvider, nil
}
