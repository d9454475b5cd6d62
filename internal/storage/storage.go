package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/eacouncil/membership/pkg/errors"
)

// ErrStorageDisabled is returned when no object store is configured. Callers
// surface it as a 501 so clients can fall back to direct upload.
var ErrStorageDisabled = apperrors.New("STORAGE_DISABLED", "object storage is not configured", 501)

// PresignedUpload is a one-time URL the client PUTs the file to.
type PresignedUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner hands out short-lived upload URLs for applicant documents.
type Presigner interface {
	PresignUpload(ctx context.Context, filename, contentType string) (*PresignedUpload, error)
	Enabled() bool
}

// ObjectKey derives a server-side key for an upload. The client-supplied
// filename only contributes its extension, never its name.
func ObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext)
}

// Disabled is the null presigner used when storage is not configured.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (*Disabled) Enabled() bool { return false }

func (*Disabled) PresignUpload(context.Context, string, string) (*PresignedUpload, error) {
	return nil, ErrStorageDisabled
}
