package api

import (
	"sync"
	"time"

	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/game"
)

// registry keeps the current session of every device.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]entry
}

type entry struct {
	session *game.Session
	day     int
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]entry)}
}

func (r *registry) put(device string, now time.Time, ss *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[device] = entry{session: ss, day: dayindex.Index(now)}
}

// current returns the device's session. A daily session started on another
// day is dropped.
func (r *registry) current(device string, now time.Time) (*game.Session, bool) {
	r.mu.RLock()
	e, ok := r.sessions[device]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.day == dayindex.Index(now) || e.session.State().Mode != domain.ModeDaily {
		return e.session, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if cur, ok := r.sessions[device]; ok && cur.session == e.session {
		delete(r.sessions, device)
	}

	return nil, false
}
