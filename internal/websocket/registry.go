package websocket

import "sync"

// Registry maps a user identity to the one live connection currently
// speaking for it. Binding an identity again supersedes the old connection.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]*Client
	byConn     map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]*Client),
		byConn:     make(map[string]string),
	}
}

// Bind makes client the connection for identity and returns the connection it
// replaced, if any. A connection speaks for at most one identity.
func (r *Registry) Bind(identity string, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.byConn[client.ID]; ok && other != identity {
		if r.byIdentity[other] == client {
			delete(r.byIdentity, other)
		}
	}

	previous := r.byIdentity[identity]
	if previous != nil && previous != client {
		delete(r.byConn, previous.ID)
	}

	r.byIdentity[identity] = client
	r.byConn[client.ID] = identity
	client.setIdentity(identity)

	if previous == client {
		return nil
	}
	return previous
}

func (r *Registry) Unbind(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.byIdentity[identity]; ok {
		delete(r.byConn, client.ID)
		delete(r.byIdentity, identity)
	}
}

// Release unbinds identity only while client is still its connection and
// reports whether it was.
func (r *Registry) Release(identity string, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byIdentity[identity] != client {
		return false
	}
	delete(r.byIdentity, identity)
	delete(r.byConn, client.ID)
	return true
}

func (r *Registry) ResolveIdentity(client *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byConn[client.ID]
	return identity, ok
}

func (r *Registry) ResolveConnection(identity string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.byIdentity[identity]
	return client, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}
