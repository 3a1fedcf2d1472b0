package plugin

import (
	"context"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/retrofit/internal/event"
)

// installEvents registers the events module in the script's state.
func (h *Host) installEvents(s *Script) {
	s.lua.RegisterModule("events", map[string]lua.LGFunction{
		"on": func(L *lua.LState) int {
			id, err := h.on(s, L.CheckString(1), L.CheckFunction(2), L.OptTable(3, nil))
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			L.Push(lua.LString(id.String()))
			return 1
		},
		"off": func(L *lua.LState) int {
			id, err := uuid.Parse(L.CheckString(1))
			if err != nil {
				L.Push(lua.LFalse)
				return 1
			}
			L.Push(lua.LBool(s.unsubscribe(id)))
			return 1
		},
		"names": func(L *lua.LState) int {
			t := L.NewTable()
			for _, e := range h.registry.Entries() {
				t.Append(lua.LString(e.Name))
			}
			L.Push(t)
			return 1
		},
	})
}

// on subscribes fn to the named event.
func (h *Host) on(s *Script, name string, fn *lua.LFunction, opts *lua.LTable) (uuid.UUID, error) {
	entry, err := h.registry.ByName(name)
	if err != nil {
		return uuid.Nil, errors.Wrapf(ErrUnknownEvent, "%q", name)
	}

	id := uuid.New()
	sub := &subscription{
		id:    id,
		entry: entry,
		opts: []event.SubscribeOption{
			event.WithName("lua:" + s.Name + ":" + id.String()),
			event.WithReceiver(s.ID),
			event.WithAutoManaged(false),
		},
	}

	if opts != nil {
		switch p := opts.RawGetString("priority").(type) {
		case lua.LNumber:
			sub.opts = append(sub.opts, event.WithPriority(event.Priority(int(p))))
		case lua.LString:
			prio, err := event.ParsePriority(strings.ToLower(string(p)))
			if err != nil {
				return uuid.Nil, err
			}
			sub.opts = append(sub.opts, event.WithPriority(prio))
		}
		if lua.LVAsBool(opts.RawGetString("run_when_denied")) {
			sub.opts = append(sub.opts, event.RunWhenDenied())
		}
		sub.observer = lua.LVAsBool(opts.RawGetString("observer"))
	}

	if entry.Payload == nil || sub.observer {
		sub.fn = func() {
			h.call(s, fn)
		}
	} else {
		ft := reflect.FuncOf([]reflect.Type{entry.Payload}, nil, false)
		sub.fn = reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
			h.callWithPayload(s, fn, args[0])
			return nil
		}).Interface()
	}

	if err := entry.Dispatcher.SubscribeAny(sub.fn, sub.opts...); err != nil {
		return uuid.Nil, err
	}
	s.subs[id] = sub
	s.order = append(s.order, id)
	return id, nil
}

// call runs a handler. Errors panic so the dispatcher records a handler fault.
func (h *Host) call(s *Script, fn *lua.LFunction, args ...lua.LValue) {
	if _, err := s.lua.Call(context.Background(), fn, args...); err != nil {
		panic(errors.Wrapf(err, "script %s", s.Name))
	}
}

func (h *Host) callWithPayload(s *Script, fn *lua.LFunction, payload reflect.Value) {
	t := s.bridge.ToLuaValue(payload.Interface())
	table, ok := t.(*lua.LTable)
	if !ok {
		h.call(s, fn, t)
		return
	}
	if d, ok := payload.Interface().(event.Deniable); ok {
		attachDenial(s.lua.L, table, d)
	}
	h.call(s, fn, table)
	writeBack(table, payload)
}

func attachDenial(L *lua.LState, t *lua.LTable, d event.Deniable) {
	L.SetFuncs(t, map[string]lua.LGFunction{
		"deny": func(L *lua.LState) int {
			d.SetAllowed(false)
			return 0
		},
		"hard_deny": func(L *lua.LState) int {
			d.HardDeny()
			return 0
		},
		"allowed": func(L *lua.LState) int {
			L.Push(lua.LBool(d.Allowed()))
			return 1
		},
		"set_allowed": func(L *lua.LState) int {
			// ev:set_allowed(b) passes the table first.
			n := 1
			if L.Get(1) == t {
				n = 2
			}
			d.SetAllowed(L.CheckBool(n))
			return 0
		},
	})
}

// writeBack copies integer, boolean and string fields the handler changed
// into the payload struct.
func writeBack(t *lua.LTable, payload reflect.Value) {
	v := payload
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	rt := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		lv := t.RawGetString(f.Name)
		switch field.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if n, ok := lv.(lua.LNumber); ok {
				field.SetInt(int64(n))
			}
		case reflect.Bool:
			if b, ok := lv.(lua.LBool); ok {
				field.SetBool(bool(b))
			}
		case reflect.String:
			if s, ok := lv.(lua.LString); ok {
				field.SetString(string(s))
			}
		}
	}
}
