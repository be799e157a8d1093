package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/dshills/codefox/internal/upload"
)

type geminiFiles interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// fileStore is an upload.Store on the Gemini Files API. The API has no
// container object, so a handle is the set of files uploaded under it.
type fileStore struct {
	files geminiFiles

	mu    sync.Mutex
	names map[string][]string
}

func newFileStore(files geminiFiles) *fileStore {
	return &fileStore{files: files, names: make(map[string][]string)}
}

func (s *fileStore) Create(_ context.Context) (upload.Handle, error) {
	h := upload.Handle{
		ID:   fmt.Sprintf("codefox-%d", time.Now().UnixNano()),
		Name: "codefox context",
	}
	s.mu.Lock()
	s.names[h.ID] = nil
	s.mu.Unlock()
	return h, nil
}

func (s *fileStore) Upload(ctx context.Context, h upload.Handle, file upload.File, mimeType string) (upload.Operation, error) {
	r, err := file.Open()
	if err != nil {
		return upload.Operation{}, fmt.Errorf("opening %s: %w", file.Path, err)
	}
	defer r.Close()

	f, err := s.files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(file.Path),
	})
	if err != nil {
		return upload.Operation{}, classifyGenAI(err)
	}
	s.mu.Lock()
	s.names[h.ID] = append(s.names[h.ID], f.Name)
	s.mu.Unlock()
	return fileOperation(file.Path, f), nil
}

func (s *fileStore) Poll(ctx context.Context, op upload.Operation) (upload.Operation, error) {
	f, err := s.files.Get(ctx, op.RemoteID, nil)
	if err != nil {
		return op, classifyGenAI(err)
	}
	return fileOperation(op.Path, f), nil
}

// Delete removes every file uploaded under h. Files are always removed
// individually, so force has no further effect.
func (s *fileStore) Delete(ctx context.Context, h upload.Handle, _ bool) error {
	s.mu.Lock()
	names := s.names[h.ID]
	delete(s.names, h.ID)
	s.mu.Unlock()

	var errs []error
	for _, name := range names {
		if _, err := s.files.Delete(ctx, name, nil); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func fileOperation(path string, f *genai.File) upload.Operation {
	op := upload.Operation{
		RemoteID: f.Name,
		Path:     path,
		URI:      f.URI,
		MIMEType: f.MIMEType,
	}
	switch f.State {
	case genai.FileStateActive:
		op.Done = true
	case genai.FileStateFailed:
		op.Done = true
		msg := "processing failed"
		if f.Error != nil && f.Error.Message != "" {
			msg = f.Error.Message
		}
		op.Err = errors.New(msg)
	}
	return op
}
