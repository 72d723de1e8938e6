package export

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultOrigin is the origin of blob URLs created by DefaultBlobStore.
const DefaultOrigin = "ziploader"

// DefaultBlobStore is the BlobStore used by loaders that are not given one.
var DefaultBlobStore = NewBlobStore(DefaultOrigin)

type blob struct {
	data        []byte
	contentType string
}

// BlobStore hands out URLs of the form "blob:<origin>/<uuid>" for in-memory content until they are revoked.
//
// BlobStore is also an http.Handler serving every live blob at "/<uuid>". It is safe for concurrent use.
type BlobStore struct {
	origin string

	// mu guards blobs.
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore returns an empty BlobStore for the given origin.
func NewBlobStore(origin string) *BlobStore {
	return &BlobStore{
		origin: origin,
		blobs:  make(map[string]blob),
	}
}

// Create copies data into the store and returns its URL.
func (s *BlobStore) Create(data []byte, contentType string) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.blobs[id] = blob{data: bytes.Clone(data), contentType: contentType}
	s.mu.Unlock()

	return s.url(id)
}

// Get returns the content and content type behind a URL that has not been revoked.
func (s *BlobStore) Get(url string) ([]byte, string, bool) {
	id, ok := s.id(url)
	if !ok {
		return nil, "", false
	}

	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()

	return b.data, b.contentType, ok
}

// Revoke releases the content behind url.
//
// Returns false if url was not created by this store or has already been revoked.
func (s *BlobStore) Revoke(url string) bool {
	id, ok := s.id(url)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok = s.blobs[id]; ok {
		delete(s.blobs, id)
	}

	return ok
}

// Len returns the number of live blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blobs)
}

func (s *BlobStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	data, contentType, ok := s.Get(s.url(strings.TrimPrefix(r.URL.Path, "/")))
	if !ok {
		http.NotFound(w, r)
		return
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (s *BlobStore) url(id string) string {
	return fmt.Sprintf("blob:%s/%s", s.origin, id)
}

func (s *BlobStore) id(url string) (string, bool) {
	return strings.CutPrefix(url, "blob:"+s.origin+"/")
}

// ContentType guesses the content type of a file from its extension.
//
// Returns an empty string if nothing matches.
func ContentType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case "":
		return ""
	default:
		return mime.TypeByExtension(ext)
	}
}
