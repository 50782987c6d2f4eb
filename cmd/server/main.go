// Copyright 2026 The EdgePanel Authors
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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgepanel/edgepanel/internal/audit"
	"github.com/edgepanel/edgepanel/internal/authz"
	"github.com/edgepanel/edgepanel/internal/config"
	"github.com/edgepanel/edgepanel/internal/identity"
	"github.com/edgepanel/edgepanel/internal/observability/logger"
	"github.com/edgepanel/edgepanel/internal/observability/metrics"
	"github.com/edgepanel/edgepanel/internal/observability/tracing"
	"github.com/edgepanel/edgepanel/internal/permission"
	"github.com/edgepanel/edgepanel/internal/role"
	"github.com/edgepanel/edgepanel/internal/store/postgres"
	transportHTTP "github.com/edgepanel/edgepanel/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting edgepanel authorization core")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	roleRepo := postgres.NewRoleRepository(db)
	adminRepo := postgres.NewAdminRepository(db)

	// Initialize helpers
	registry := permission.NewRegistry()
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	// Initialize services
	roleService := role.NewService(roleRepo, registry, auditLogger)
	adminService := identity.NewService(
		adminRepo,
		roleRepo,
		passwordHasher,
		cfg.Security.MinPasswordLength,
		auditLogger,
	)
	engine := authz.NewService(adminRepo, roleRepo, registry, auditLogger)
	roleService.SetInvalidator(engine)

	if meter != nil {
		instruments, err := meter.NewDecisionInstruments()
		if err != nil {
			slog.Error("failed to create decision instruments", logger.Error(err))
		} else {
			engine.SetInstruments(instruments)
		}
	}

	// Seed builtin roles and the initial administrator
	bootstrapper := identity.NewBootstrapper(adminRepo, roleRepo, registry, passwordHasher, auditLogger)
	if err := bootstrapper.Run(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
		os.Exit(1)
	}

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		registry,
		roleService,
		adminService,
		engine,
		auditLogger,
		transportHTTP.AuthConfig{
			SigningKey: []byte(cfg.Auth.TokenSigningKey),
			Issuer:     cfg.Auth.TokenIssuer,
		},
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	slog.Info("schema applied")
	return nil
}
