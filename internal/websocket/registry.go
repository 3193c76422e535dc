package websocket

import "sync"

// Registry is the room membership multimap. It is the only state shared
// between connection goroutines and HTTP handlers, and every access goes
// through its mutex. The raw membership sets are never handed to callers.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]bool
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]bool),
	}
}

// Join adds a connection to a room, creating the room on first subscribe.
// Joining a room twice is a no-op.
func (r *Registry) Join(room string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]bool)
	}
	r.rooms[room][client] = true
}

// Leave removes a connection from a room and prunes the room once its last
// member is gone, so churned rooms do not accumulate.
func (r *Registry) Leave(room string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// MembersExcept returns a snapshot of a room's members, leaving out the
// excluded connection. Callers iterate the snapshot, never the live set.
func (r *Registry) MembersExcept(room string, exclude *Client) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for client := range members {
		if client != exclude {
			out = append(out, client)
		}
	}
	return out
}

// Rooms lists the identifiers of rooms that currently have members.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		out = append(out, room)
	}
	return out
}
