package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/2beens/fittrack/internal"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/logging"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	demoUsername = "admin"
	demoPassword = "password"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := ""
	if cfg.SentryEnabled {
		sentryDSN = os.Getenv("SENTRY_DSN")
	}
	logging.Setup(logging.Params{
		Level:       cfg.LogLevel,
		JSON:        cfg.LogFormatJSON,
		File:        cfg.LogsPath,
		TeeFile:     cfg.LogToStdout,
		SentryDSN:   sentryDSN,
		Environment: cfg.Environment,
		ServerName:  "fittrack-service",
	})

	log.Debugf("using host: %s, port: %d", cfg.Host, cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)
	log.Debugf("using storage backend: [%s]", cfg.StorageBackend)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	adminUsername := os.Getenv("FITTRACK_ADMIN_USERNAME")
	adminPasswordHash := os.Getenv("FITTRACK_ADMIN_PASSWORD_HASH")
	if adminUsername == "" || adminPasswordHash == "" {
		log.Warnf(
			"admin username and password not set, use FITTRACK_ADMIN_USERNAME and FITTRACK_ADMIN_PASSWORD_HASH. falling back to demo credentials [%s/%s]",
			demoUsername, demoPassword,
		)
		adminUsername = demoUsername
		adminPasswordHash, err = pkg.HashPassword(demoPassword)
		if err != nil {
			log.Fatalf("hash demo password: %s", err)
		}
	}

	redisPassword := os.Getenv("FITTRACK_REDIS_PASS")
	if redisPassword == "" {
		log.Warnln("redis password not set. use FITTRACK_REDIS_PASS")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	if cfg.PublicDir != "" {
		exists, err := pkg.PathExists(cfg.PublicDir, true)
		if err != nil || !exists {
			log.Errorf("public dir [%s] not found, static files will 404: %v", cfg.PublicDir, err)
		}
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			AdminUsername:           adminUsername,
			AdminPasswordHash:       adminPasswordHash,
			SessionSecret:           os.Getenv("SESSION_SECRET"),
			RedisPassword:           redisPassword,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash assumes the binary runs from within the repo checkout.
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
