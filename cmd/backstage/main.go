package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/mbstudio/backstage/internal/backup"
	"github.com/mbstudio/backstage/internal/database"
	"github.com/mbstudio/backstage/internal/logging"
	"github.com/mbstudio/backstage/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	genVAPID := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genVAPID {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		fmt.Printf("BACKSTAGE_VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Printf("BACKSTAGE_VAPID_PRIVATE_KEY=%s\n", privateKey)
		return
	}

	port := envOr("BACKSTAGE_PORT", "8080")
	dbPath := envOr("BACKSTAGE_DB_PATH", "backstage.db")

	logger := logging.Setup(os.Getenv("BACKSTAGE_LOG_LEVEL"), os.Getenv("BACKSTAGE_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BACKSTAGE_S3_ENDPOINT"),
			Bucket:    os.Getenv("BACKSTAGE_S3_BUCKET"),
			Region:    envOr("BACKSTAGE_S3_REGION", "auto"),
			AccessKey: os.Getenv("BACKSTAGE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BACKSTAGE_S3_SECRET_KEY"),
			Prefix:    envOr("BACKSTAGE_S3_PREFIX", "backups"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("BACKSTAGE_BACKUP_PASSPHRASE"),
	}
	if h, err := strconv.Atoi(envOr("BACKSTAGE_BACKUP_HOUR", "3")); err == nil {
		backupCfg.ScheduleHour = h
	}
	if d, err := strconv.Atoi(os.Getenv("BACKSTAGE_BACKUP_RETENTION_DAYS")); err == nil && d > 0 {
		backupCfg.RetentionDays = d
	}

	cfg := server.Config{
		Port:            port,
		VAPIDPublicKey:  os.Getenv("BACKSTAGE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("BACKSTAGE_VAPID_PRIVATE_KEY"),
		PushSubscriber:  os.Getenv("BACKSTAGE_VAPID_SUBSCRIBER"),
		Backup:          backupCfg,
	}

	srv := server.New(db, cfg, logger)

	if err := srv.EnsureAdmin(os.Getenv("BACKSTAGE_ADMIN_EMAIL"), os.Getenv("BACKSTAGE_ADMIN_PASSWORD")); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if srv.BackupManager().Enabled() {
		srv.BackupManager().Start(ctx)
		defer srv.BackupManager().Stop()
	}
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Hourly sweep for expired sessions and stale rate limiter entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Backstage running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
