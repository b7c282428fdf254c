package realtime

import "teamchat-backend/internal/utils"

// Broadcaster delivers events to connections resolved through the Registry.
// Delivery is fire-and-forget per connection: one closed or failing recipient
// never aborts delivery to the rest.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// ToRoom sends payload to every connection subscribed to roomID, optionally
// excluding one connection (the sender, for events like typing).
func (b *Broadcaster) ToRoom(roomID string, payload interface{}, excludeConnID string) {
	for connID, conn := range b.registry.snapshotRoom(roomID) {
		if connID == excludeConnID {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			utils.LogError(err, "Broadcast ToRoom")
		}
	}
}

// ToUser sends payload to every live connection of userID, so all of a
// user's devices stay in sync.
func (b *Broadcaster) ToUser(userID string, payload interface{}) {
	for _, conn := range b.registry.snapshotUser(userID) {
		if err := conn.WriteJSON(payload); err != nil {
			utils.LogError(err, "Broadcast ToUser")
		}
	}
}

// Global sends payload to every live connection. Used for presence changes,
// which are visible workspace-wide.
func (b *Broadcaster) Global(payload interface{}) {
	for _, conn := range b.registry.snapshotAll() {
		if err := conn.WriteJSON(payload); err != nil {
			utils.LogError(err, "Broadcast Global")
		}
	}
}
