package ws

import (
	"encoding/json"
	"sync"
)

// rawHandler is the untyped shape stored in the dispatch table.
type rawHandler func(c *clientConn, raw []byte) error

// Router maps an action tag to its handler and applies the credential
// gate before any handler runs.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	hub      *Hub
}

func NewRouter(hub *Hub) *Router {
	return &Router{handlers: make(map[string]rawHandler), hub: hub}
}

// RegisterAction binds an action to a strongly-typed handler.
func RegisterAction[Req any](r *Router, action string, h func(c *clientConn, req Req) error) {
	if action == "" {
		panic("ws router: empty action")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[action] = func(c *clientConn, raw []byte) error {
		var req Req
		if err := json.Unmarshal(raw, &req); err != nil {
			return errMalformed
		}
		return h(c, req)
	}
}

// dispatch validates one inbound frame and runs its handler. Every action
// except the login handshake must carry the uid and session id recorded
// for the connection; a mismatch is reported to the sender only and the
// frame is dropped.
func (r *Router) dispatch(c *clientConn, raw []byte) error {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return errMalformed
	}

	r.mu.RLock()
	h, known := r.handlers[p.Action]
	r.mu.RUnlock()
	if !known {
		return errMalformed
	}

	if p.Action != actionLogin {
		meta, bound := r.hub.Lookup(c)
		if !bound || meta.GID != p.GID || meta.UID != p.UID {
			return errInvalidCredentials
		}
	}
	return h(c, raw)
}
