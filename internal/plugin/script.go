package plugin

import (
	"github.com/google/uuid"

	"github.com/dshills/retrofit/internal/event"
	plua "github.com/dshills/retrofit/internal/plugin/lua"
)

// Script is one loaded Lua script.
type Script struct {
	ID   uuid.UUID
	Name string
	// Path is empty for scripts loaded from a string.
	Path string

	state  State
	err    error
	lua    *plua.State
	bridge *plua.Bridge
	subs   map[uuid.UUID]*subscription
	order  []uuid.UUID
}

// subscription is a handler a script added through events.on.
type subscription struct {
	id       uuid.UUID
	entry    *event.Entry
	fn       any
	observer bool
	opts     []event.SubscribeOption
}

// State returns the script's lifecycle state.
func (s *Script) State() State {
	return s.state
}

// Err returns the load error of a script in StateError.
func (s *Script) Err() error {
	return s.err
}

// Handlers returns the number of handlers the script has subscribed.
func (s *Script) Handlers() int {
	return len(s.subs)
}

// Events returns the event name of every subscribed handler, in subscription
// order.
func (s *Script) Events() []string {
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if sub, ok := s.subs[id]; ok {
			out = append(out, sub.entry.Name)
		}
	}
	return out
}

func (s *Script) unsubscribe(id uuid.UUID) bool {
	sub, ok := s.subs[id]
	if !ok {
		return false
	}
	delete(s.subs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return sub.entry.Dispatcher.UnsubscribeAny(sub.fn, sub.opts...)
}

func (s *Script) unsubscribeAll() int {
	n := 0
	for len(s.order) > 0 {
		if s.unsubscribe(s.order[len(s.order)-1]) {
			n++
		}
	}
	return n
}
