package schema

import (
	"reflect"
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag     string
		want    Kind
		wantErr bool
	}{
		{tag: "PAGE_REFERENCE", want: KindPageReference},
		{tag: "page_reference", want: KindPageReference},
		{tag: "PRODUCT_REFERENCE", want: KindProductReference},
		{tag: "LIST.METAOBJECT_REFERENCE", want: KindListReference},
		{tag: " list.metaobject_reference ", want: KindListReference},
		{tag: "single_line_text_field", want: KindScalar},
		{tag: "number_integer", want: KindScalar},
		{tag: "", wantErr: true},
		{tag: "   ", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseKind(tc.tag)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseKind(%q) expected error, got %v", tc.tag, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseKind(%q) error: %v", tc.tag, err)
		}
		if got != tc.want {
			t.Fatalf("ParseKind(%q) = %v, want %v", tc.tag, got, tc.want)
		}
	}
}

func TestKindString_Unknown(t *testing.T) {
	t.Parallel()

	if got := Kind(42).String(); got != "Kind(42)" {
		t.Fatalf("Kind(42).String() = %q", got)
	}
}

func TestRecord_NumericIDAndDisplayName(t *testing.T) {
	t.Parallel()

	r := Record{
		ID:     "gid://shopify/Metaobject/98765",
		Fields: map[string]string{"name": "Beta"},
	}
	if got := r.NumericID(); got != "98765" {
		t.Fatalf("NumericID = %q, want 98765", got)
	}
	if got := r.DisplayName(); got != "Beta" {
		t.Fatalf("DisplayName = %q, want Beta (name fallback)", got)
	}

	r.Fields["label"] = "Alpha"
	if got := r.DisplayName(); got != "Alpha" {
		t.Fatalf("DisplayName = %q, want Alpha (label wins)", got)
	}

	bare := Record{ID: "123"}
	if got := bare.NumericID(); got != "123" {
		t.Fatalf("NumericID without slash = %q", got)
	}
	if got := bare.DisplayName(); got != "" {
		t.Fatalf("DisplayName without label/name = %q, want empty", got)
	}
}

func TestRow_Strings(t *testing.T) {
	t.Parallel()

	r := Row{
		ID: "1", Handle: "h", Command: CommandMerge, DisplayName: "D",
		Status: StatusActive, UpdatedAt: "2024-01-01T00:00:00Z",
		DefinitionHandle: "group", DefinitionName: "Group",
		TopRow: true, Index: 7, Field: "label", Value: "v",
	}
	want := []string{"1", "h", "MERGE", "D", "Active", "2024-01-01T00:00:00Z",
		"group", "Group", "VRAI", "7", "label", "v"}
	if got := r.Strings("VRAI"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings = %v, want %v", got, want)
	}

	r.TopRow = false
	if got := r.Strings("VRAI")[8]; got != "" {
		t.Fatalf("non-top row cell = %q, want empty", got)
	}
	if len(r.Strings("")) != len(Header) {
		t.Fatalf("row width %d != header width %d", len(r.Strings("")), len(Header))
	}
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(RecordType{Name: "Group", Type: "group"}, RecordType{Name: "Item", Type: "item"})
	if rt, ok := reg.Lookup("Item"); !ok || rt.Type != "item" {
		t.Fatalf("Lookup(Item) = %+v, %v", rt, ok)
	}
	if _, ok := reg.Lookup("Missing"); ok {
		t.Fatalf("Lookup(Missing) should not be found")
	}
}

func TestLowerTag(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"GroupLevel": "grouplevel",
		"groupitem":  "groupitem",
		"ÉTAPE":      "étape",
		"":           "",
	} {
		if got := LowerTag(in); got != want {
			t.Fatalf("LowerTag(%q) = %q, want %q", in, got, want)
		}
	}
}
