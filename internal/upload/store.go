package upload

import (
	"context"
	"io"
)

// Handle references a server-side container of uploaded files.
type Handle struct {
	ID   string
	Name string
}

// File is a local file to upload. Open yields the bytes to send, which may
// differ from what is on disk when content has been redacted.
type File struct {
	Path string
	Open func() (io.ReadCloser, error)
}

// Operation is the remote processing state of one uploaded file.
type Operation struct {
	RemoteID string
	Path     string
	URI      string
	MIMEType string
	Done     bool
	// Err is set when the store finished processing the file unsuccessfully.
	Err error
}

// Store is the remote context store. Implementations must allow Upload to be
// called concurrently.
type Store interface {
	Create(ctx context.Context) (Handle, error)
	Upload(ctx context.Context, h Handle, f File, mimeType string) (Operation, error)
	Poll(ctx context.Context, op Operation) (Operation, error)
	Delete(ctx context.Context, h Handle, force bool) error
}
