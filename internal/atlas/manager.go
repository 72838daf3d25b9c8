// ABOUTME: Connection manager owning one leased client per device endpoint
// ABOUTME: Reference counting replaces ambient host:port-keyed global maps

package atlas

import (
	"context"
	"net"
	"strconv"
	"sync"
)

type leasedClient struct {
	client *Client
	refs   int
}

// Manager hands out shared clients keyed by endpoint. Callers Acquire a
// connected client and must Release it; the last release disconnects.
// Pass the manager explicitly to whatever needs device access instead
// of keeping package-level connection maps.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	clients map[string]*leasedClient
}

// NewManager creates a manager; opts apply to every client it creates.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts,
		clients: make(map[string]*leasedClient),
	}
}

// Acquire returns a connected client for host:port, dialing on first
// use. On connect failure the lease is returned before the error.
func (m *Manager) Acquire(ctx context.Context, host string, port int) (*Client, error) {
	if port <= 0 {
		port = DefaultPort
	}
	key := net.JoinHostPort(host, strconv.Itoa(port))

	m.mu.Lock()
	l, ok := m.clients[key]
	if !ok {
		l = &leasedClient{client: NewClient(host, port, m.opts)}
		m.clients[key] = l
	}
	l.refs++
	m.mu.Unlock()

	// Connect is idempotent and serializes concurrent dials itself.
	if err := l.client.Connect(ctx); err != nil {
		m.Release(host, port)
		return nil, err
	}
	return l.client, nil
}

// Release returns one lease on host:port. When the last lease goes the
// client disconnects and is dropped from the table.
func (m *Manager) Release(host string, port int) {
	if port <= 0 {
		port = DefaultPort
	}
	key := net.JoinHostPort(host, strconv.Itoa(port))

	m.mu.Lock()
	l, ok := m.clients[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	l.refs--
	if l.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.clients, key)
	m.mu.Unlock()

	l.client.Disconnect()
}

// Len returns the number of live leased endpoints.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close disconnects every client regardless of outstanding leases.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for key, l := range m.clients {
		clients = append(clients, l.client)
		delete(m.clients, key)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.Disconnect()
	}
}
