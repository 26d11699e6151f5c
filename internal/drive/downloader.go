package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// maxRetries bounds the chunk-retry loop. The counter resets whenever a
	// request makes forward progress, matching resume-from-offset semantics.
	maxRetries = 5

	// maxRetryWait caps the exponential backoff between attempts.
	maxRetryWait = 60 * time.Second
)

// Downloader streams Drive file content into a local directory. Transfers go
// through a "<fileID>.part" temp file that is renamed to the file's reported
// name only on completion, so the destination never exists in a partial
// state. An interrupted run leaves the temp file behind and the next run
// resumes from its size with a byte-range request.
type Downloader struct {
	client *Client

	// Overwrite allows replacing an existing destination file.
	Overwrite bool

	// ShowProgress prints a byte counter to stdout while the transfer runs.
	ShowProgress bool

	retryWait func(attempt int) time.Duration
}

// NewDownloader creates a downloader with default retry backoff.
func NewDownloader(client *Client) *Downloader {
	return &Downloader{
		client:    client,
		retryWait: exponentialWait,
	}
}

// exponentialWait doubles per attempt, capped at maxRetryWait.
func exponentialWait(attempt int) time.Duration {
	wait := time.Duration(1<<uint(attempt)) * time.Second
	if wait > maxRetryWait {
		return maxRetryWait
	}
	return wait
}

// Download fetches the file's metadata and content and writes it below
// saveDir under the file's reported name.
func (d *Downloader) Download(ctx context.Context, fileID, saveDir string) (*DownloadResult, error) {
	info, err := d.client.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	log.Infof("Downloading %q (%d bytes) to %s", info.Name, info.Size, saveDir)

	if err = os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	finalPath := filepath.Join(saveDir, info.Name)
	if !d.Overwrite {
		if _, errStat := os.Stat(finalPath); errStat == nil {
			return nil, fmt.Errorf("%s already exists, enable overwrite to replace it", finalPath)
		}
	}

	tempPath := filepath.Join(saveDir, fileID+".part")
	written, err := d.fetchToTemp(ctx, info, tempPath)
	if err != nil {
		if written > 0 {
			log.Warnf("Download failed, partial file kept for resumption: %s", tempPath)
		}
		return nil, err
	}

	if err = os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return &DownloadResult{Path: finalPath, BytesWritten: written}, nil
}

// fetchToTemp appends the remote content to the temp file, resuming from its
// current size, until the transfer is byte-complete. Transient failures are
// retried with exponential backoff.
func (d *Downloader) fetchToTemp(ctx context.Context, info *FileInfo, tempPath string) (int64, error) {
	var offset int64
	if fi, err := os.Stat(tempPath); err == nil {
		offset = fi.Size()
	}
	if info.Size > 0 && offset > info.Size {
		// Stale temp from a different revision; start over.
		log.Warnf("Partial file %s is larger than the remote file, restarting download", tempPath)
		if err := os.Remove(tempPath); err != nil {
			return 0, fmt.Errorf("failed to remove stale temp file: %w", err)
		}
		offset = 0
	}
	if offset > 0 {
		log.Infof("Resuming download from byte %d", offset)
	}
	if info.Size > 0 && offset == info.Size {
		return offset, nil
	}

	attempt := 0
	for {
		var n int64
		body, err := d.client.Download(ctx, info.ID, offset)
		if err == nil {
			n, err = d.appendToTemp(info, body, tempPath, offset)
			offset += n
			if err == nil {
				if info.Size == 0 || offset == info.Size {
					return offset, nil
				}
				err = fmt.Errorf("file %s: stream ended at %d of %d bytes: %w", info.ID, offset, info.Size, ErrTransport)
			}
			if n > 0 {
				attempt = 0
			}
		}

		if !retryable(err) {
			return offset, err
		}
		attempt++
		if attempt > maxRetries {
			return offset, err
		}
		wait := d.retryWait(attempt)
		log.Warnf("Download error: %v, retrying in %s (%d/%d)...", err, wait, attempt, maxRetries)
		select {
		case <-ctx.Done():
			return offset, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// appendToTemp copies the response body onto the end of the temp file.
func (d *Downloader) appendToTemp(info *FileInfo, body io.ReadCloser, tempPath string, offset int64) (int64, error) {
	defer func() {
		_ = body.Close()
	}()

	file, err := os.OpenFile(tempPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open temp file: %w", err)
	}

	var src io.Reader = body
	if d.ShowProgress {
		src = &progressReader{Reader: body, current: offset, total: info.Size}
	}
	n, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if d.ShowProgress && n > 0 {
		fmt.Printf("\n")
	}

	if copyErr != nil {
		return n, fmt.Errorf("file %s: %w: %v", info.ID, ErrTransport, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	return n, nil
}

// progressReader prints a running byte counter as the body is consumed.
type progressReader struct {
	io.Reader
	current int64
	total   int64
}

func (p *progressReader) Read(dat []byte) (int, error) {
	n, err := p.Reader.Read(dat)
	p.current += int64(n)
	if err == nil {
		if p.total > 0 {
			fmt.Printf("\rDownloading (bytes)... %d / %d", p.current, p.total)
		} else {
			fmt.Printf("\rDownloading (bytes)... %d", p.current)
		}
	}
	return n, err
}
