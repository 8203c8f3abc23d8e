package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"filevault/internal/db"
	"filevault/internal/server"
)

func main() {
	log := newLogger()

	cfg := server.Config{
		Addr: getenvDefault("FV_ADDR", ":8080"),
		Build: server.BuildInfo{
			Version: getenvDefault("FV_VERSION", "dev"),
			Commit:  getenvDefault("FV_COMMIT", "unknown"),
		},
		SecretKey:      os.Getenv("FV_SECRET_KEY"),
		SessionTTL:     2 * time.Hour,
		SecureCookies:  getenvDefault("FV_SECURE_COOKIES", "false") == "true",
		MaxUploadBytes: getenvInt64("FV_MAX_UPLOAD_BYTES", 0),
	}

	// Safety: refuse to start without a signing secret.
	if cfg.SecretKey == "" {
		log.Fatal("FV_SECRET_KEY is not set")
	}

	dbPath := getenvDefault("FV_DB_PATH", "filevault.db")
	dbConn, err := server.OpenDB(dbPath)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	defer func() { _ = dbConn.Close() }()

	log.Info("running migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	// Seed the bootstrap admin on an empty database.
	if adminPass := os.Getenv("FV_ADMIN_PASS"); adminPass != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.BootstrapAdmin(ctx, dbConn, "default admin", adminPass); err != nil {
			cancel()
			log.WithError(err).Fatal("admin bootstrap failed")
		}
		cancel()
	}

	blobs, err := newBlobStore(log)
	if err != nil {
		log.WithError(err).Fatal("blob store init failed")
	}

	srv := server.New(cfg, dbConn, blobs, log)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr,
			"version": cfg.Build.Version,
			"commit":  cfg.Build.Commit,
		}).Info("starting")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Fatal("shutdown error")
		}
		log.Info("shutdown complete")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	}
}

// newBlobStore selects a blob backend: local disk by default, an
// S3-compatible store when FV_BLOB_BACKEND=s3.
func newBlobStore(log *logrus.Logger) (server.BlobStore, error) {
	switch backend := getenvDefault("FV_BLOB_BACKEND", "disk"); backend {
	case "s3":
		log.Info("using s3 blob backend")
		return server.NewMinioStore(server.MinioConfig{
			Endpoint:  os.Getenv("FV_S3_ENDPOINT"),
			AccessKey: os.Getenv("FV_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("FV_S3_SECRET_KEY"),
			Bucket:    os.Getenv("FV_S3_BUCKET"),
		})
	default:
		root := getenvDefault("FV_STORAGE_ROOT", "file_store")
		log.WithField("root", root).Info("using disk blob backend")
		return server.NewDiskStore(root)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if getenvDefault("FV_LOG_FORMAT", "text") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(getenvDefault("FV_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
