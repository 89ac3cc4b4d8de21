package session

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Flash kinds.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Flash is a one-shot alert shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AddFlash queues a message for the current session. Without a session it is dropped.
func (m *Manager) AddFlash(r *http.Request, kind, message string) error {
	sid, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return err
	}
	if err := m.store.Set(r.Context(), flashKey(sid), raw, m.ttl); err != nil {
		return fmt.Errorf("failed to store flash: %w", err)
	}
	return nil
}

// PopFlash returns and removes the queued message, if any.
func (m *Manager) PopFlash(r *http.Request) *Flash {
	sid, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	raw, err := m.store.Get(r.Context(), flashKey(sid))
	if err != nil {
		return nil
	}
	_ = m.store.Delete(r.Context(), flashKey(sid))

	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}
