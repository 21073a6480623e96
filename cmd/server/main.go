package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"log/slog"

	"github.com/insightdash/syncengine/internal/api"
	"github.com/insightdash/syncengine/internal/config"
	"github.com/insightdash/syncengine/internal/database"
	"github.com/insightdash/syncengine/internal/gateway"
	"github.com/insightdash/syncengine/internal/ledger"
	"github.com/insightdash/syncengine/internal/logging"
	"github.com/insightdash/syncengine/internal/metrics"
	"github.com/insightdash/syncengine/internal/models"
	"github.com/insightdash/syncengine/internal/orchestrator"
	"github.com/insightdash/syncengine/internal/scheduler"
	"github.com/insightdash/syncengine/internal/server"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting syncengine")

	// Without DATABASE_URL the ledger lives in process memory, which is
	// enough for local runs and demos.
	var led ledger.SyncLedger
	if cfg.Database.URL != "" {
		logger.Info("connecting to database")
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		db, err := database.Connect(context.Background(), dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.RunMigrations(db, cfg.Database.MigrationsDir, logger); err != nil {
			logger.Warn("failed to run migrations, continuing anyway", "error", err)
		}

		led = ledger.NewPostgresLedger(db)
		logger.Info("using postgres ledger")
	} else {
		led = ledger.NewMemoryLedger()
		logger.Warn("DATABASE_URL not set, sync history will not survive restarts")
	}

	gw := gateway.New(logger)
	if err := registerConnectors(gw, logger); err != nil {
		logger.Error("failed to register connectors", "error", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.New(gw, led, collector, logger)
	sched := scheduler.New(orch, led, logger, cfg.Scheduler.CriticalConnectors)

	if cfg.Scheduler.Enabled {
		if err := sched.RegisterDefaults(context.Background()); err != nil {
			logger.Error("failed to register default jobs", "error", err)
			os.Exit(1)
		}
		sched.Start()
	} else {
		logger.Info("scheduler disabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	api.SetupRoutes(mux, orch, sched, gw, led, cfg.Scheduler.CriticalConnectors, logger)

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("syncengine started", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if cfg.Scheduler.Enabled {
		sched.Shutdown()
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// registerConnectors builds the connector fleet from the environment. Each
// source is registered only when its settings are present, so a bare
// process starts with an empty fleet and everything still works.
func registerConnectors(gw *gateway.Gateway, logger *slog.Logger) error {
	type envConnector struct {
		id       string
		name     string
		kind     models.ConnectorKind
		settings map[string]string
		required []string
	}

	candidates := []envConnector{
		{
			id: "salesforce", name: "Salesforce CRM", kind: models.KindVendorSalesforce,
			settings: map[string]string{
				"auth_url":      os.Getenv("SALESFORCE_AUTH_URL"),
				"base_url":      os.Getenv("SALESFORCE_BASE_URL"),
				"client_id":     os.Getenv("SALESFORCE_CLIENT_ID"),
				"client_secret": os.Getenv("SALESFORCE_CLIENT_SECRET"),
				"industry":      os.Getenv("SALESFORCE_INDUSTRY"),
			},
			required: []string{"auth_url", "base_url"},
		},
		{
			id: "sap", name: "SAP ERP", kind: models.KindVendorSAP,
			settings: map[string]string{
				"auth_url":      os.Getenv("SAP_AUTH_URL"),
				"base_url":      os.Getenv("SAP_BASE_URL"),
				"client_id":     os.Getenv("SAP_CLIENT_ID"),
				"client_secret": os.Getenv("SAP_CLIENT_SECRET"),
			},
			required: []string{"auth_url", "base_url"},
		},
		{
			id: "totvs", name: "TOTVS ERP", kind: models.KindVendorTOTVS,
			settings: map[string]string{
				"auth_url":      os.Getenv("TOTVS_AUTH_URL"),
				"base_url":      os.Getenv("TOTVS_BASE_URL"),
				"client_id":     os.Getenv("TOTVS_CLIENT_ID"),
				"client_secret": os.Getenv("TOTVS_CLIENT_SECRET"),
			},
			required: []string{"auth_url", "base_url"},
		},
		{
			id: "analytics", name: "Web Analytics", kind: models.KindVendorAnalytics,
			settings: map[string]string{
				"auth_url":      os.Getenv("ANALYTICS_AUTH_URL"),
				"base_url":      os.Getenv("ANALYTICS_BASE_URL"),
				"client_id":     os.Getenv("ANALYTICS_CLIENT_ID"),
				"client_secret": os.Getenv("ANALYTICS_CLIENT_SECRET"),
			},
			required: []string{"auth_url", "base_url"},
		},
		{
			id: "bi", name: "BI Platform", kind: models.KindVendorBI,
			settings: map[string]string{
				"auth_url":      os.Getenv("BI_AUTH_URL"),
				"base_url":      os.Getenv("BI_BASE_URL"),
				"client_id":     os.Getenv("BI_CLIENT_ID"),
				"client_secret": os.Getenv("BI_CLIENT_SECRET"),
			},
			required: []string{"auth_url", "base_url"},
		},
		{
			id: "csv-import", name: "CSV Import", kind: models.KindFileCSV,
			settings: map[string]string{"path": os.Getenv("CSV_IMPORT_PATH")},
			required: []string{"path"},
		},
		{
			id: "excel-import", name: "Excel Import", kind: models.KindFileExcel,
			settings: map[string]string{
				"path":  os.Getenv("EXCEL_IMPORT_PATH"),
				"sheet": os.Getenv("EXCEL_IMPORT_SHEET"),
			},
			required: []string{"path"},
		},
		{
			id: "http-import", name: "HTTP Import", kind: models.KindHTTPAPI,
			settings: map[string]string{
				"url":           os.Getenv("HTTP_IMPORT_URL"),
				"authorization": os.Getenv("HTTP_IMPORT_AUTHORIZATION"),
			},
			required: []string{"url"},
		},
		{
			id: "pg-import", name: "Postgres Import", kind: models.KindSQLPostgres,
			settings: map[string]string{
				"dsn":   os.Getenv("PG_IMPORT_DSN"),
				"query": os.Getenv("PG_IMPORT_QUERY"),
			},
			required: []string{"dsn", "query"},
		},
		{
			id: "mysql-import", name: "MySQL Import", kind: models.KindSQLMySQL,
			settings: map[string]string{
				"dsn":   os.Getenv("MYSQL_IMPORT_DSN"),
				"query": os.Getenv("MYSQL_IMPORT_QUERY"),
			},
			required: []string{"dsn", "query"},
		},
	}

	registered := 0
	for _, c := range candidates {
		configured := true
		for _, key := range c.required {
			if c.settings[key] == "" {
				configured = false
				break
			}
		}
		if !configured {
			continue
		}

		err := gw.Register(models.ConnectorConfig{
			ID:       c.id,
			Name:     c.name,
			Kind:     c.kind,
			Settings: c.settings,
		})
		if err != nil {
			return err
		}
		registered++
	}

	logger.Info("connector fleet registered", "count", registered)
	return nil
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
