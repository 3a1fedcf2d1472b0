package lua

import (
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/retrofit/internal/host"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a bridge for L.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value. Integral numbers become int; tables become
// a []any when they are sequences and a map[string]any otherwise.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		if count == n {
			arr := make([]any, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = b.toGo(t.RawGetInt(i), visited)
			}
			return arr
		}
	}
	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = b.toGo(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value. Host objects become tables of their fields
// with an extra "type" entry; other structs become tables of their exported
// fields.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	return b.toLua(v, make(map[*host.Object]bool))
}

func (b *Bridge) toLua(v any, visited map[*host.Object]bool) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case *host.Object:
		if val == nil || visited[val] {
			return lua.LNil
		}
		visited[val] = true
		return b.objectToTable(val, visited)
	case []any:
		t := b.L.NewTable()
		for i, e := range val {
			t.RawSetInt(i+1, b.toLua(e, visited))
		}
		return t
	case map[string]any:
		t := b.L.NewTable()
		for k, e := range val {
			t.RawSetString(k, b.toLua(e, visited))
		}
		return t
	}
	return b.reflectToLua(reflect.ValueOf(v), visited)
}

func (b *Bridge) objectToTable(o *host.Object, visited map[*host.Object]bool) *lua.LTable {
	t := b.L.NewTable()
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.RawSetString(k, b.toLua(o.Fields[k], visited))
	}
	t.RawSetString("type", lua.LString(o.Type))
	return t
}

func (b *Bridge) reflectToLua(rv reflect.Value, visited map[*host.Object]bool) lua.LValue {
	switch rv.Kind() {
	case reflect.Invalid:
		return lua.LNil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.reflectToLua(rv.Elem(), visited)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Slice, reflect.Array:
		t := b.L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.toLua(rv.Index(i).Interface(), visited))
		}
		return t
	case reflect.Struct:
		return b.structToTable(rv, visited)
	default:
		ud := b.L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}

// structToTable converts exported, non-embedded fields.
func (b *Bridge) structToTable(rv reflect.Value, visited map[*host.Object]bool) *lua.LTable {
	t := b.L.NewTable()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		t.RawSetString(f.Name, b.toLua(rv.Field(i).Interface(), visited))
	}
	return t
}

// TableString returns a string field of t.
func (b *Bridge) TableString(t *lua.LTable, key string) (string, bool) {
	s, ok := t.RawGetString(key).(lua.LString)
	return string(s), ok
}

// TableInt returns a numeric field of t as an int.
func (b *Bridge) TableInt(t *lua.LTable, key string) (int, bool) {
	n, ok := t.RawGetString(key).(lua.LNumber)
	return int(n), ok
}

// TableBool returns a boolean field of t.
func (b *Bridge) TableBool(t *lua.LTable, key string) (bool, bool) {
	v, ok := t.RawGetString(key).(lua.LBool)
	return bool(v), ok
}
