package websocket

import (
	"encoding/json"
	"sync"
)

// CategoryUpdate is pushed to a user's open sessions whenever a posting
// changes an envelope or account balance.
type CategoryUpdate struct {
	LedgerID  string `json:"ledger_id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
	}
}

func (h *Hub) attach(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.userID] == nil {
		h.sessions[s.userID] = make(map[*session]struct{})
	}
	h.sessions[s.userID][s] = struct{}{}
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.userID] == nil {
		return
	}
	delete(h.sessions[s.userID], s)
	if len(h.sessions[s.userID]) == 0 {
		delete(h.sessions, s.userID)
	}
}

// BroadcastCategory fans the update out to the user's sessions. Slow
// consumers are skipped rather than blocking the posting path.
func (h *Hub) BroadcastCategory(userID string, update CategoryUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions[userID] {
		select {
		case s.outbox <- payload:
		default:
		}
	}
}
