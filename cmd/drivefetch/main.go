package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/drivefetch/drivefetch/internal/cmd"
	"github.com/drivefetch/drivefetch/internal/config"
	"github.com/drivefetch/drivefetch/internal/logging"
	log "github.com/sirupsen/logrus"
)

func main() {
	var login bool
	var noBrowser bool
	var configPath string
	var fileID string
	var saveDir string

	flag.BoolVar(&login, "login", false, "Force a fresh Google consent flow and exit")
	flag.BoolVar(&noBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.StringVar(&fileID, "file-id", "", "Google Drive file ID (overrides the config file)")
	flag.StringVar(&saveDir, "save-dir", "", "Download directory (overrides the config file)")

	flag.Parse()

	logging.SetupBaseLogger()

	var err error
	var cfg *config.Config
	var wd string

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		wd, err = os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		cfg, err = config.LoadConfig(path.Join(wd, "config.yaml"))
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if fileID != "" {
		cfg.FileID = fileID
	}
	if saveDir != "" {
		cfg.SaveDir = saveDir
	}
	if noBrowser {
		cfg.NoBrowser = true
	}

	logging.SetDebug(cfg.Debug)
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	ctx := context.Background()

	if login {
		if cfg.CredentialsFile == "" {
			log.Fatalf("invalid config: credentials-file is required")
		}
		if err = cmd.DoLogin(ctx, cfg); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		return
	}

	if err = cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err = cmd.DoDownload(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
