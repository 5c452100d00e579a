package gateway

import "sync"

// Registry hands out one Client per normalized base URL. It is owned by
// the application's composition root and passed by reference, never held
// as a process-wide global.
type Registry struct {
	mu      sync.Mutex
	opts    []ClientOption
	clients map[string]*Client
}

// NewRegistry creates a registry; opts apply to every client it builds.
func NewRegistry(opts ...ClientOption) *Registry {
	return &Registry{
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Client returns the shared client for the base URL, constructing it on
// first use. "https://x" and "https://x/" resolve to the same client.
func (r *Registry) Client(baseURL string) *Client {
	key := NormalizeBaseURL(baseURL)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c
	}
	c := NewClient(key, r.opts...)
	r.clients[key] = c
	return c
}
