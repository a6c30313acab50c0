// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/memory"
	"github.com/poiesic/docent/telemetry"
)

const (
	configKey  = "config"
	metricsKey = "metrics"
	serverKey  = "server"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docent",
		Usage: "Answer questions from local documents and scraped web content",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DOCENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			ingestCommand(),
			askCommand(),
			chatCommand(),
			historyCommand(),
			sessionsCommand(),
			rebuildCommand(),
			reembedCommand(),
			statusCommand(),
			configCommand(),
		},
	}
}

// setup resolves configuration, installs the logger and starts the
// metrics endpoint when one is requested.
func setup(c *cli.Context) error {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.DatabasePath = db
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		return err
	}
	c.App.Metadata = map[string]any{configKey: cfg}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		c.App.Metadata[metricsKey] = telemetry.New(reg)
		c.App.Metadata[serverKey] = serveMetrics(addr, reg)
	}
	return nil
}

func teardown(c *cli.Context) error {
	if srv, ok := c.App.Metadata[serverKey].(*http.Server); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}

func setupLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// openEngine opens the engine for a command. Tests replace it.
var openEngine = func(c *cli.Context) (*docent.Engine, error) {
	cfg := configFrom(c)
	opts := []docent.Option{docent.WithConfig(cfg), docent.WithLogger(slog.Default())}
	if metrics, ok := c.App.Metadata[metricsKey].(*telemetry.Metrics); ok {
		opts = append(opts, docent.WithMetrics(metrics))
	}
	if counter, err := memory.NewTiktokenCounter(cfg.AI.ChatModel); err == nil {
		opts = append(opts, docent.WithTokenCounter(counter))
	} else {
		slog.Warn("token encoding unavailable, estimating from length", "err", err)
	}
	engine, err := docent.Open(cfg.DatabasePath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}
