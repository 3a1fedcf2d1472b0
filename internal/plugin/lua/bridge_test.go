package lua

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/retrofit/internal/host"
)

func TestBridgeRoundTrip(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"bool", true, true},
		{"int", 42, 42},
		{"float", 1.5, 1.5},
		{"string", "hi", "hi"},
		{"nil", nil, nil},
		{"slice", []any{1, "a", false}, []any{1, "a", false}},
		{"map", map[string]any{"a": 1, "b": "x"}, map[string]any{"a": 1, "b": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.ToGoValue(b.ToLuaValue(tt.in))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBridgeObjects(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	player := host.NewObject("PlayerController", map[string]any{"health": 80, "playerUsername": "alice"})
	item := host.NewObject("GrabbableObject", map[string]any{"itemName": "shovel", "playerHeldBy": player})
	player.SetField("held", item)

	tbl, ok := b.ToLuaValue(item).(*glua.LTable)
	if !ok {
		t.Fatalf("ToLuaValue(object) is not a table")
	}
	if name, _ := b.TableString(tbl, "itemName"); name != "shovel" {
		t.Errorf("itemName = %q", name)
	}
	if typ, _ := b.TableString(tbl, "type"); typ != "GrabbableObject" {
		t.Errorf("type = %q", typ)
	}
	holder, ok := tbl.RawGetString("playerHeldBy").(*glua.LTable)
	if !ok {
		t.Fatal("playerHeldBy is not a table")
	}
	if hp, _ := b.TableInt(holder, "health"); hp != 80 {
		t.Errorf("health = %d", hp)
	}
	// The cycle back to item is cut.
	if holder.RawGetString("held") != glua.LNil {
		t.Error("cyclic reference should convert to nil")
	}
}

type payload struct {
	hidden int
	Embedded
	Damage int
	Player *host.Object
}

type Embedded struct{ Flag bool }

func TestBridgeStruct(t *testing.T) {
	state := NewState()
	defer state.Close()
	b := NewBridge(state.L)

	p := &payload{hidden: 1, Damage: 20, Player: host.NewObject("PlayerController", nil)}
	tbl := b.ToLuaValue(p).(*glua.LTable)

	if n, _ := b.TableInt(tbl, "Damage"); n != 20 {
		t.Errorf("Damage = %d", n)
	}
	for _, key := range []string{"hidden", "Embedded", "Flag"} {
		if tbl.RawGetString(key) != glua.LNil {
			t.Errorf("field %q should be skipped", key)
		}
	}
	if _, ok := tbl.RawGetString("Player").(*glua.LTable); !ok {
		t.Error("Player should convert to a table")
	}
}
