package builtins

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

func testVM() *bytecode.VM {
	vm := bytecode.NewVM(map[string]*bytecode.ClassDescriptor{}, nil, nil)
	Standard().Apply(vm)
	return vm
}

func TestToJsonFromJsonRoundTrip(t *testing.T) {
	r := NewRegistry()
	registerJSON(r)

	m := bytecode.NewMap()
	m.Set("name", bytecode.Str("ada"))
	m.Set("age", bytecode.Long(36))
	v := bytecode.MapVal(m)

	s, err := toJSON(v)
	if err != nil {
		t.Fatalf("toJSON: %v", err)
	}

	back := fromGJSON(gjson.Parse(s))
	got := back.AsMap()
	if name, _ := got.Get("name"); name.AsString() != "ada" {
		t.Fatalf("round trip lost name field: %v", got)
	}
}

func TestSortWithNoClosureOrdersNumerically(t *testing.T) {
	list := bytecode.ListVal(bytecode.NewList([]bytecode.Value{bytecode.Long(3), bytecode.Long(1), bytecode.Long(2)}))
	elems := elementsOf(list)
	if !compareLess(elems[1], elems[0]) {
		t.Fatalf("expected 1 < 3 under compareLess")
	}
}

func TestBcryptHashAndVerifyRoundTrip(t *testing.T) {
	r := NewRegistry()
	registerHash(r)
	hashFn := r.Functions["bcryptHash"]
	verifyFn := r.Functions["bcryptVerify"]
	vm := testVM()

	hashed, err := hashFn(vm, []bytecode.Value{bytecode.Str("s3cret"), bytecode.Nil()})
	if err != nil {
		t.Fatalf("bcryptHash: %v", err)
	}
	ok, err := verifyFn(vm, []bytecode.Value{bytecode.Str("s3cret"), hashed})
	if err != nil {
		t.Fatalf("bcryptVerify: %v", err)
	}
	if !ok.Truthy() {
		t.Fatalf("expected bcryptVerify to accept the correct password")
	}
}

