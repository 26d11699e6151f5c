package drive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDownloader(t *testing.T, server *fakeDriveServer) *Downloader {
	t.Helper()
	downloader := NewDownloader(newTestClient(t, server))
	downloader.retryWait = func(int) time.Duration { return time.Millisecond }
	return downloader
}

func TestDownloadEndToEnd(t *testing.T) {
	content := pdfContent(1024)
	server := &fakeDriveServer{files: map[string]fakeFile{
		"abc123": {name: "report.pdf", mimeType: "application/pdf", content: content},
	}}
	saveDir := t.TempDir()

	result, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(saveDir, "report.pdf"), result.Path)
	assert.Equal(t, int64(1024), result.BytesWritten)

	got, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = os.Stat(filepath.Join(saveDir, "abc123.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadCreatesSaveDir(t *testing.T) {
	server := &fakeDriveServer{files: map[string]fakeFile{
		"abc123": {name: "report.pdf", content: pdfContent(64)},
	}}
	saveDir := filepath.Join(t.TempDir(), "nested", "out")

	result, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)
	assert.FileExists(t, result.Path)
}

func TestDownloadNotFoundLeavesNoPartialFile(t *testing.T) {
	server := &fakeDriveServer{}
	saveDir := t.TempDir()

	_, err := newTestDownloader(t, server).Download(context.Background(), "missing", saveDir)
	require.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadResumesFromPartialFile(t *testing.T) {
	content := pdfContent(1024)
	server := &fakeDriveServer{files: map[string]fakeFile{
		"abc123": {name: "report.pdf", content: content},
	}}
	saveDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "abc123.part"), content[:100], 0o644))

	result, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)
	assert.Equal(t, "bytes=100-", server.rangeHeader)
	assert.Equal(t, int64(1024), result.BytesWritten)

	got, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRestartsWhenPartialIsLargerThanRemote(t *testing.T) {
	content := pdfContent(1024)
	server := &fakeDriveServer{files: map[string]fakeFile{
		"abc123": {name: "report.pdf", content: content},
	}}
	saveDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(saveDir, "abc123.part"), pdfContent(2000), 0o644))

	result, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)
	assert.Empty(t, server.rangeHeader)

	got, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRetriesTransientErrors(t *testing.T) {
	content := pdfContent(256)
	server := &fakeDriveServer{
		files: map[string]fakeFile{
			"abc123": {name: "report.pdf", content: content},
		},
		failMedia: 2,
	}
	saveDir := t.TempDir()

	result, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)
	assert.Equal(t, int64(256), result.BytesWritten)
	assert.Equal(t, 3, server.mediaCalls)
}

func TestDownloadGivesUpAfterMaxRetries(t *testing.T) {
	server := &fakeDriveServer{
		files: map[string]fakeFile{
			"abc123": {name: "report.pdf", content: pdfContent(256)},
		},
		failMedia: maxRetries + 10,
	}
	saveDir := t.TempDir()

	_, err := newTestDownloader(t, server).Download(context.Background(), "abc123", saveDir)
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, maxRetries+1, server.mediaCalls)
}

func TestDownloadRefusesExistingFile(t *testing.T) {
	content := pdfContent(64)
	server := &fakeDriveServer{files: map[string]fakeFile{
		"abc123": {name: "report.pdf", content: content},
	}}
	saveDir := t.TempDir()
	finalPath := filepath.Join(saveDir, "report.pdf")
	require.NoError(t, os.WriteFile(finalPath, []byte("old"), 0o644))

	downloader := newTestDownloader(t, server)
	_, err := downloader.Download(context.Background(), "abc123", saveDir)
	require.ErrorContains(t, err, "already exists")

	downloader.Overwrite = true
	result, err := downloader.Download(context.Background(), "abc123", saveDir)
	require.NoError(t, err)

	got, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestExponentialWait(t *testing.T) {
	assert.Equal(t, 2*time.Second, exponentialWait(1))
	assert.Equal(t, 4*time.Second, exponentialWait(2))
	assert.Equal(t, maxRetryWait, exponentialWait(10))
}
