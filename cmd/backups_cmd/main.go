package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/2beens/fittrack/internal/backup"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/logging"
	"github.com/2beens/fittrack/internal/store"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	credentialsFile := flag.String("gd-creds", "./drive-credentials.json", "google drive service account credentials json")
	shareWith := flag.String("share-with", "", "email address to share the backups with (read only)")
	keep := flag.Int("keep", 30, "number of newest backup files to keep on google drive, 0 keeps all")
	outFile := flag.String("out", "", "write the backup to this local file instead of google drive")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logsPath := ""
	if cfg.LogsPath != "" {
		logsPath = cfg.LogsPath + "-backup"
	}
	sentryDSN := ""
	if cfg.SentryEnabled {
		sentryDSN = os.Getenv("SENTRY_DSN")
	}
	logging.Setup(logging.Params{
		Level:       cfg.LogLevel,
		File:        logsPath,
		TeeFile:     true,
		SentryDSN:   sentryDSN,
		Environment: cfg.Environment,
		ServerName:  "fittrack-backup",
	})

	log.Println("starting fittrack backup ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fitnessStore, err := store.Open(ctx, store.ParamsFromConfig(cfg, false))
	if err != nil {
		log.Fatalf("open %s store: %s", cfg.StorageBackend, err)
	}
	defer func() {
		if err := fitnessStore.Close(); err != nil {
			log.Errorf("close store: %s", err)
		}
	}()

	doc, err := backup.Collect(ctx, fitnessStore, time.Now())
	if err != nil {
		log.Errorf("collect backup: %s", err)
		return
	}

	if *outFile != "" {
		if err := writeLocal(*outFile, doc); err != nil {
			log.Errorf("write local backup: %s", err)
			return
		}
		log.Printf("backup written to %s", *outFile)
		return
	}

	credentialsFileBytes, err := os.ReadFile(*credentialsFile)
	if err != nil {
		log.Errorf("unable to read credentials file: %s", err)
		return
	}

	s, err := backup.NewGoogleDriveBackupService(ctx, *shareWith, option.WithCredentialsJSON(credentialsFileBytes))
	if err != nil {
		log.Errorf("failed to create google drive backup service: %s", err)
		return
	}

	fileID, err := s.DoBackup(ctx, doc)
	if err != nil {
		log.Errorf("backup failed: %s", err)
		return
	}
	log.Printf("backup uploaded: %s", fileID)

	if *keep > 0 {
		deleted, err := s.Prune(ctx, *keep)
		if err != nil {
			log.Errorf("prune old backups: %s", err)
			return
		}
		log.Printf("pruned %d old backups", deleted)
	}
}

func writeLocal(path string, doc *backup.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := backup.Export(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
