package api

import (
	"log"

	"github.com/gofiber/contrib/websocket"

	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/raid"
)

// handleRaidSocket joins a connection to its clan's raid room and pumps
// inbound frames into it until the peer disconnects.
func (m *Module) handleRaidSocket(c *websocket.Conn) {
	m.mu.RLock()
	registry := m.registry
	m.mu.RUnlock()
	if registry == nil {
		log.Println("[api] raid socket rejected, registry not wired yet")
		_ = c.Close()
		return
	}

	clanID := c.Params("clan_id")
	username := c.Params("username")
	if clanID == "" || username == "" {
		_ = c.Close()
		return
	}

	room := registry.Resolve(clanID)
	session, err := room.Admit(c, username, clanID)
	if err != nil {
		log.Printf("[api] raid socket admit failed for %s: %v", username, err)
		return
	}
	closeCode, closeReason := websocket.CloseNormalClosure, "client disconnect"
	defer func() {
		room.Remove(session.ID, closeCode, closeReason)
	}()

	log.Printf("[api] raid socket connected: %s in clan %s", username, clanID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] raid socket closed: %s", username)
			} else {
				closeCode, closeReason = websocket.CloseAbnormalClosure, "read error"
				log.Printf("[api] raid socket read error from %s: %v", username, err)
			}
			return
		}
		room.HandleMessage(session.ID, msgBytes)
	}
}

// ensure the websocket conn satisfies the room transport at compile time
var _ raid.Conn = (*websocket.Conn)(nil)
