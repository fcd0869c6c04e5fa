package lobby

import "sync"

// serverEntry tracks one registered game server.
type serverEntry struct {
	endpoint string
	busy     bool
	sessions int
}

// ServerPool is the registry of game servers that announced themselves to
// the lobby. Safe for concurrent use.
type ServerPool struct {
	mu      sync.Mutex
	servers map[string]*serverEntry
}

// NewServerPool returns an empty registry.
func NewServerPool() *ServerPool {
	return &ServerPool{servers: make(map[string]*serverEntry)}
}

// Register announces a game server as available. Re-registering an evicted
// or busy server clears its busy flag.
func (p *ServerPool) Register(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.servers[endpoint]; ok {
		entry.busy = false
		return
	}
	p.servers[endpoint] = &serverEntry{endpoint: endpoint}
}

// SetBusy marks a server as not accepting new sessions.
func (p *ServerPool) SetBusy(endpoint string, busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.servers[endpoint]; ok {
		entry.busy = busy
	}
}

// Evict removes an unreachable server from the registry.
func (p *ServerPool) Evict(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.servers, endpoint)
}

// Acquire picks the least-loaded available server and counts a session
// against it.
func (p *ServerPool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var best *serverEntry
	for _, entry := range p.servers {
		if entry.busy {
			continue
		}
		if best == nil || entry.sessions < best.sessions ||
			(entry.sessions == best.sessions && entry.endpoint < best.endpoint) {
			best = entry
		}
	}
	if best == nil {
		return "", ErrNoServers
	}
	best.sessions++
	return best.endpoint, nil
}

// Release uncounts a finished session from a server.
func (p *ServerPool) Release(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.servers[endpoint]; ok && entry.sessions > 0 {
		entry.sessions--
	}
}

// Endpoints lists registered servers, for diagnostics.
func (p *ServerPool) Endpoints() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	endpoints := make([]string, 0, len(p.servers))
	for endpoint := range p.servers {
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}
