package preview

import "sync"

// URLPrefix is where the HTTP layer serves registered previews.
const URLPrefix = "/api/preview/"

// URLFor returns the display URL of a registered preview.
func URLFor(id string) string {
	return URLPrefix + id
}

// Registry keeps preview images addressable by id until they are revoked.
type Registry struct {
	images map[string][]byte
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{images: make(map[string][]byte)}
}

// Put registers data under id and returns its display URL.
func (r *Registry) Put(id string, data []byte) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[id] = data
	return URLFor(id)
}

// Get returns the preview bytes for id.
func (r *Registry) Get(id string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.images[id]
	return data, ok
}

// Revoke releases the preview registered under id.
func (r *Registry) Revoke(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, id)
}

// Len reports how many previews are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.images)
}
