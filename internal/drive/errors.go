package drive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for the download failure taxonomy. API failures are mapped
// onto these; everything that never reached the API surfaces as ErrTransport.
var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransport        = errors.New("transport failure")
)

// classifyAPIError maps a Drive API call failure onto the error taxonomy.
// A 404 means the file ID does not exist; a 403 covers both a file that is
// not shared with the authorized account and a token lacking the read-only
// scopes.
func classifyAPIError(fileID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		case http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("file %s: %w", fileID, ErrPermissionDenied)
		}
		return fmt.Errorf("file %s: drive api error %d: %w", fileID, apiErr.Code, ErrTransport)
	}
	return fmt.Errorf("file %s: %w: %v", fileID, ErrTransport, err)
}

// retryable reports whether a classified error is worth another attempt.
// Missing files and permission problems never heal on retry.
func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPermissionDenied)
}
