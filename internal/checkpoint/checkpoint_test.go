package checkpoint

import (
	"testing"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

func TestSaveLoadRoundTripsScalarsAndCollections(t *testing.T) {
	fn := &bytecode.FunctionObject{Name: "main", FQName: "main", NumLocals: 2}
	prog := &Program{
		Functions: map[string]*bytecode.FunctionObject{"main": fn},
		Classes:   map[string]*bytecode.ClassDescriptor{},
	}

	m := bytecode.NewMap()
	m.Set("a", bytecode.Int(1))
	m.Set("b", bytecode.Str("x"))
	list := bytecode.ListVal(bytecode.NewList([]bytecode.Value{bytecode.Long(7), bytecode.Bool(true), bytecode.Nil()}))

	cont := &bytecode.Continuation{
		Frames: []bytecode.FrameSnapshot{
			{Fn: fn, Locals: []bytecode.Value{list, bytecode.MapVal(m)}, IP: 3},
		},
		Stack:   []bytecode.Value{bytecode.Double(1.5)},
		Globals: []bytecode.Value{bytecode.Str("g")},
	}

	data, id, err := Save(cont)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == (ID{}) {
		t.Fatal("Save returned a zero ID")
	}

	got, gotID, err := Load(data, prog)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotID != id {
		t.Fatalf("id mismatch: saved %v, loaded %v", id, gotID)
	}
	if len(got.Frames) != 1 || got.Frames[0].IP != 3 {
		t.Fatalf("unexpected frames: %+v", got.Frames)
	}
	restoredList := got.Frames[0].Locals[0].AsList()
	if restoredList.Len() != 3 {
		t.Fatalf("list did not round-trip: %v", restoredList)
	}
	restoredMap := got.Frames[0].Locals[1].AsMap()
	if v, ok := restoredMap.Get("b"); !ok || v.AsString() != "x" {
		t.Fatalf("map did not round-trip: %v", restoredMap)
	}
}

func TestSaveLoadRoundTripsSelfReferentialList(t *testing.T) {
	fn := &bytecode.FunctionObject{Name: "main", FQName: "main"}
	prog := &Program{Functions: map[string]*bytecode.FunctionObject{"main": fn}, Classes: map[string]*bytecode.ClassDescriptor{}}

	l := bytecode.NewList(nil)
	l.Append(bytecode.Int(1))
	lv := bytecode.ListVal(l)
	l.Append(lv)

	cont := &bytecode.Continuation{Frames: []bytecode.FrameSnapshot{{Fn: fn, Locals: []bytecode.Value{lv}}}}
	data, _, err := Save(cont)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _, err := Load(data, prog)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored := got.Frames[0].Locals[0].AsList()
	if restored.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", restored.Len())
	}
	if restored.Elements[1].AsList() != restored {
		t.Fatalf("self-reference did not round-trip to the same list pointer")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	if _, _, err := Load([]byte{99}, &Program{}); err == nil {
		t.Fatal("expected an error for an unsupported wire version")
	}
}
