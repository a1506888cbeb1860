package record_test

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/manolodalbo/nurse-cadet/internal/record"
)

func TestHeaderMatchesRowOrder(t *testing.T) {
	if err := record.CheckFieldOrder(); err != nil {
		t.Fatalf("CheckFieldOrder: %v", err)
	}
	want := []string{
		"card_type", "serial_number", "last_name", "first_name", "middle_name",
		"home_street", "home_city", "home_county", "home_state", "date_of_birth",
		"admission_corp_date", "admission_school_date", "termination_date", "termination_type",
		"school_name", "school_city", "school_state", "file",
	}
	if got := record.Header(); !slices.Equal(got, want) {
		t.Fatalf("unexpected header:\n got %v\nwant %v", got, want)
	}
}

func TestRowRendersAbsentAsEmptyAndKeepsNullSentinel(t *testing.T) {
	rec := record.Record{
		CardType:     record.String("300A"),
		SerialNumber: record.String("null"),
		LastName:     record.String("Doe"),
		File:         "card_001.jpg",
	}
	row := rec.Row()
	if len(row) != len(record.Header()) {
		t.Fatalf("row has %d cells, header %d", len(row), len(record.Header()))
	}
	if row[0] != "300A" || row[1] != "null" || row[2] != "Doe" || row[3] != "" {
		t.Fatalf("unexpected leading cells: %v", row[:4])
	}
	if row[len(row)-1] != "card_001.jpg" {
		t.Fatalf("expected file column last, got %v", row)
	}
}

func TestIsBlank(t *testing.T) {
	cases := []struct {
		name string
		rec  record.Record
		want bool
	}{
		{"all absent", record.Record{CardType: record.String("300A")}, true},
		{"all empty strings", record.Record{
			FirstName: record.String(""), LastName: record.String(" "), SerialNumber: record.String(""),
		}, true},
		{"all null sentinel", record.Record{
			FirstName: record.String("null"), LastName: record.String("null"), SerialNumber: record.String("null"),
		}, true},
		{"mixed null and absent", record.Record{
			FirstName: record.String("null"), LastName: record.String("null"),
		}, false},
		{"last name only", record.Record{LastName: record.String("Doe")}, false},
		{"serial only", record.Record{SerialNumber: record.String("12345")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.IsBlank(); got != tc.want {
				t.Fatalf("IsBlank() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromDocument(t *testing.T) {
	rec, err := record.FromDocument(map[string]any{
		"last_name":        "Smith",
		"first_name":       nil,
		"termination_type": "Graduation",
		"extra":            42,
	})
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if v, ok := rec.Get("last_name"); !ok || v != "Smith" {
		t.Fatalf("unexpected last_name %q %v", v, ok)
	}
	if _, ok := rec.Get("first_name"); ok {
		t.Fatal("expected null first_name to be absent")
	}
	if _, ok := rec.Get("serial_number"); ok {
		t.Fatal("expected missing serial_number to be absent")
	}
	if v, _ := rec.Get("termination_type"); v != "Graduation" {
		t.Fatalf("unexpected termination_type %q", v)
	}

	if _, err := record.FromDocument(map[string]any{"last_name": 7.0}); err == nil {
		t.Fatal("expected error for non-string value")
	}
}

func TestCanonicalizeEnums(t *testing.T) {
	doc := map[string]any{
		"termination_type": "graduation",
		"card_type":        "300a revised",
		"last_name":        "mcdonald",
		"school_state":     nil,
	}
	record.Canonicalize(doc)
	if doc["termination_type"] != "Graduation" {
		t.Fatalf("termination_type = %v", doc["termination_type"])
	}
	if doc["card_type"] != "300A Revised" {
		t.Fatalf("card_type = %v", doc["card_type"])
	}
	if doc["last_name"] != "mcdonald" {
		t.Fatalf("free text must be untouched, got %v", doc["last_name"])
	}

	unknown := map[string]any{"termination_type": "Transfer"}
	record.Canonicalize(unknown)
	if unknown["termination_type"] != "Transfer" {
		t.Fatalf("unknown enum must be left for validation, got %v", unknown["termination_type"])
	}
}

func TestResponseSchemaIsStrict(t *testing.T) {
	var doc map[string]any
	if err := json.Unmarshal(record.Schema.ResponseSchema(), &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if doc["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties false, got %v", doc["additionalProperties"])
	}
	required, _ := doc["required"].([]any)
	if len(required) != len(record.Schema.Fields) {
		t.Fatalf("expected every field required, got %d", len(required))
	}
	props, _ := doc["properties"].(map[string]any)
	term, _ := props["termination_type"].(map[string]any)
	enum, _ := term["enum"].([]any)
	if len(enum) != 4 || enum[3] != nil {
		t.Fatalf("expected enum with trailing null, got %v", enum)
	}

	var validation map[string]any
	if err := json.Unmarshal(record.Schema.ValidationSchema(), &validation); err != nil {
		t.Fatalf("decode validation schema: %v", err)
	}
	if _, ok := validation["required"]; ok {
		t.Fatal("validation schema must not require keys")
	}
}
