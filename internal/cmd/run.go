// Package cmd implements the drivefetch commands: the forced login flow and
// the single-shot download run.
package cmd

import (
	"context"
	"fmt"

	"github.com/drivefetch/drivefetch/internal/auth"
	"github.com/drivefetch/drivefetch/internal/config"
	"github.com/drivefetch/drivefetch/internal/drive"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DoLogin discards any cached token and runs the interactive consent flow.
func DoLogin(ctx context.Context, cfg *config.Config) error {
	authorizer, store, err := buildAuthorizer(cfg)
	if err != nil {
		return err
	}

	if err = store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to discard cached token: %w", err)
	}

	log.Info("Initializing Google authentication...")
	if _, err = authorizer.EnsureToken(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// DoDownload runs the download described by the configuration: it obtains a
// valid token (interactively if needed), opens an authenticated Drive session
// and streams the file to the save directory.
func DoDownload(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	log.Infof("Starting download run %s for file %s", runID, cfg.FileID)

	authorizer, _, err := buildAuthorizer(cfg)
	if err != nil {
		return err
	}

	httpClient, err := authorizer.GetAuthenticatedClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to get authenticated client: %w", err)
	}

	driveClient, err := drive.NewClient(ctx, httpClient)
	if err != nil {
		return err
	}

	downloader := drive.NewDownloader(driveClient)
	downloader.Overwrite = cfg.Overwrite
	downloader.ShowProgress = !cfg.LoggingToFile

	result, err := downloader.Download(ctx, cfg.FileID, cfg.SaveDir)
	if err != nil {
		return fmt.Errorf("download run %s failed: %w", runID, err)
	}

	log.Infof("Download run %s complete: %s (%d bytes)", runID, result.Path, result.BytesWritten)
	return nil
}

func buildAuthorizer(cfg *config.Config) (*auth.Authorizer, auth.TokenStore, error) {
	credential, err := auth.LoadClientCredential(cfg.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := auth.NewStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewAuthorizer(credential, store, cfg), store, nil
}
