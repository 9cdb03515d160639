package objectstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-process object store for tests and local development.
// It counts gateway calls so tests can assert that precondition failures
// never reach the network.
type MemoryStore struct {
	mu          sync.Mutex
	objects     map[string]File
	uploadCalls int
	deleteCalls int
	failUploads error
}

// NewMemoryObjectStore creates an empty in-memory object store.
func NewMemoryObjectStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]File)}
}

// FailUploadsWith makes every subsequent Upload return err.
func (s *MemoryStore) FailUploadsWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUploads = err
}

// UploadCalls reports how many uploads reached the store.
func (s *MemoryStore) UploadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadCalls
}

// Upload validates and stores the file, reporting completion progress.
func (s *MemoryStore) Upload(_ context.Context, file File, opts Options) (*UploadResult, error) {
	s.mu.Lock()
	s.uploadCalls++
	failErr := s.failUploads
	s.mu.Unlock()

	if err := ValidateUpload(file); err != nil {
		return nil, err
	}
	if failErr != nil {
		return nil, failErr
	}

	publicID := opts.PublicID
	if publicID == "" {
		publicID = file.Name
	}
	if opts.Folder != "" {
		publicID = strings.TrimRight(opts.Folder, "/") + "/" + publicID
	}

	s.mu.Lock()
	s.objects[publicID] = file
	s.mu.Unlock()

	if opts.OnProgress != nil {
		opts.OnProgress(0.5)
		opts.OnProgress(1.0)
	}

	return &UploadResult{
		URL:      fmt.Sprintf("https://media.test/%s", publicID),
		PublicID: publicID,
		Bytes:    int64(len(file.Data)),
		Format:   FormatFromName(file.Name),
	}, nil
}

// Delete removes an object; missing objects are success.
func (s *MemoryStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	delete(s.objects, publicID)
	return nil
}

// List returns public ids under a prefix.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for id := range s.objects {
		if strings.HasPrefix(id, prefix) {
			names = append(names, id)
		}
	}
	return names, nil
}
