package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"waps/api/internal/app"
	"waps/api/internal/config"
	"waps/api/internal/email"
	"waps/api/internal/media"
	"waps/api/internal/scanner"
	"waps/api/internal/search"
	"waps/api/internal/session"
	"waps/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	scanOpts := []scanner.Option{}
	if cfg.ScannerUseBrowser {
		browser, err := scanner.NewBrowserFetcher(cfg.ScannerTimeout)
		if err != nil {
			log.Printf("WARNING: browser scanning unavailable, using plain fetch: %v", err)
		} else {
			scanOpts = append(scanOpts, scanner.WithBrowser(browser))
		}
	}
	siteScanner := scanner.New(cfg.ScannerTimeout, scanOpts...)

	pgsub := search.NewPgSub(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgsub)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	serviceOpts := []app.ServiceOption{
		app.WithSearch(searchService),
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		mediaStore, err := media.NewStore(media.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			PublicURL: cfg.MinioPublicURL,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("WARNING: favicon cache unavailable: %v", err)
		} else {
			serviceOpts = append(serviceOpts, app.WithMedia(mediaStore))
		}
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if emailService.IsConfigured() {
		serviceOpts = append(serviceOpts, app.WithEmail(emailService))
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		serviceOpts = append(serviceOpts, app.WithSessions(redisStore))
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
		serviceOpts = append(serviceOpts, app.WithSessions(dataStore))
	}

	service := app.New(cfg, dataStore, siteScanner, serviceOpts...)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}
	if err := service.ReindexSearch(ctx); err != nil {
		log.Printf("WARNING: search reindex failed: %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Waps API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
