// ABOUTME: Subscription registry mapping parameter names to update listeners
// ABOUTME: Tracks which sub calls reached the device so re-subscription is idempotent

package atlas

import (
	"sync"

	"github.com/google/uuid"
	"github.com/harper/atlas-control/internal/jsonrpc"
)

// UpdateFunc receives an unsolicited parameter update. value is the
// float64 or string the device pushed; raw carries the full params.
type UpdateFunc func(param string, value interface{}, raw jsonrpc.Params)

// Subscription is the handle returned by Client.Subscribe; cancel it
// with Client.Unsubscribe.
type Subscription struct {
	id     string
	param  string
	format jsonrpc.Format
}

// Param returns the subscribed parameter name.
func (s *Subscription) Param() string { return s.param }

type subKey struct {
	param  string
	format jsonrpc.Format
}

type listener struct {
	format jsonrpc.Format
	fn     UpdateFunc
}

// subscriptions is consulted on every incoming update; the wired set
// records which (param, format) pairs have had a sub issued on the
// wire. Dispatch is decided by local listeners only, never by whether
// the device confirmed the sub.
type subscriptions struct {
	mu        sync.Mutex
	listeners map[string]map[string]listener // param -> listener id -> listener
	wired     map[subKey]bool
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		listeners: make(map[string]map[string]listener),
		wired:     make(map[subKey]bool),
	}
}

// add registers fn and reports whether a sub still needs to be issued
// on the wire for this (param, format) pair. When it does, the pair is
// marked wired immediately so concurrent subscribers send it once.
func (s *subscriptions) add(param string, format jsonrpc.Format, fn UpdateFunc) (id string, needsWire bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = uuid.New().String()[:8]
	set, ok := s.listeners[param]
	if !ok {
		set = make(map[string]listener)
		s.listeners[param] = set
	}
	set[id] = listener{format: format, fn: fn}

	key := subKey{param: param, format: format}
	if s.wired[key] {
		return id, false
	}
	s.wired[key] = true
	return id, true
}

// remove drops one listener and reports whether it was the last one for
// its (param, format) pair; if so the pair is unmarked so a later
// subscribe issues a fresh sub.
func (s *subscriptions) remove(param, id string) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.listeners[param]
	if !ok {
		return false
	}
	l, ok := set[id]
	if !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.listeners, param)
	}

	for _, rest := range set {
		if rest.format == l.format {
			return false
		}
	}
	delete(s.wired, subKey{param: param, format: l.format})
	return true
}

// unwire clears the wire-issued mark, used when a sub send failed at
// the socket level and should be retried by the next subscriber.
func (s *subscriptions) unwire(param string, format jsonrpc.Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wired, subKey{param: param, format: format})
}

// dispatch invokes every listener registered for the updated parameter.
// No listeners is normal: the device may broadcast more than we asked for.
func (s *subscriptions) dispatch(p jsonrpc.Params) int {
	s.mu.Lock()
	fns := make([]UpdateFunc, 0, 2)
	for _, l := range s.listeners[p.Param] {
		fns = append(fns, l.fn)
	}
	s.mu.Unlock()

	value, _ := p.AnyValue()
	for _, fn := range fns {
		fn(p.Param, value, p)
	}
	return len(fns)
}

// reset clears listeners and wire state. Subscriptions do not survive
// reconnect; callers must resubscribe after a new Connect.
func (s *subscriptions) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[string]map[string]listener)
	s.wired = make(map[subKey]bool)
}
