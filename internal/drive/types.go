package drive

// FileInfo describes the subset of Drive file metadata the downloader needs.
type FileInfo struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// DownloadResult reports where a completed download landed and how many bytes
// were written.
type DownloadResult struct {
	Path         string
	BytesWritten int64
}
