package raid

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultRoomTTL       = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Registry routes clan ids to their rooms. Rooms are created lazily on
// first use and evicted by the janitor once empty and idle.
type Registry struct {
	events Events

	mu    sync.Mutex
	rooms map[string]*Room

	roomTTL       time.Duration
	sweepInterval time.Duration
}

func NewRegistry(events Events) *Registry {
	return &Registry{
		events:        events,
		rooms:         make(map[string]*Room),
		roomTTL:       defaultRoomTTL,
		sweepInterval: defaultSweepInterval,
	}
}

// Resolve returns the room for a clan, creating it if absent. Concurrent
// calls for the same clan observe the same room.
func (g *Registry) Resolve(clanID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[clanID]
	if !ok {
		room = newRoom(clanID, g.events)
		g.rooms[clanID] = room
		log.Printf("[raid] registry: created room for clan %s", clanID)
	}
	return room
}

// Lookup returns the room for a clan without creating one.
func (g *Registry) Lookup(clanID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[clanID]
	return room, ok
}

// RoomCount returns the number of live rooms.
func (g *Registry) RoomCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// CloseAll disconnects every session in every room and drops all rooms.
func (g *Registry) CloseAll() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	for _, room := range rooms {
		room.closeAll()
	}
}

// runJanitor periodically evicts rooms that are empty, inactive, and idle
// past the TTL. It exits when ctx is cancelled.
func (g *Registry) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(g.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

func (g *Registry) sweep(now time.Time) {
	g.mu.Lock()
	var evicted []string
	for clanID, room := range g.rooms {
		if room.idle(now, g.roomTTL) {
			delete(g.rooms, clanID)
			evicted = append(evicted, clanID)
		}
	}
	g.mu.Unlock()

	for _, clanID := range evicted {
		log.Printf("[raid] registry: evicted idle room for clan %s", clanID)
	}
}
