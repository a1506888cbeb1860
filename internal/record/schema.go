package record

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion changes whenever the extracted field set or an enumeration
// changes. Result tables written under a different version do not share a header.
const SchemaVersion = 1

// Field describes one extracted column.
type Field struct {
	Name        string
	Description string
	// Enum lists the allowed string values; empty means free text.
	Enum []string
}

// Descriptor is the static description of what the model must return.
type Descriptor struct {
	Name    string
	Version int
	Fields  []Field
}

// Schema is the card descriptor used for every request.
var Schema = Descriptor{
	Name:    "nurse_cadet_card",
	Version: SchemaVersion,
	Fields: []Field{
		{Name: "card_type", Description: "Form 300A or Form 300A (Revised May 1944)", Enum: []string{"300A", "300A Revised", NullSentinel}},
		{Name: "serial_number", Description: "Serial number at the top of the card"},
		{Name: "last_name"},
		{Name: "first_name"},
		{Name: "middle_name", Description: "Middle name or initial"},
		{Name: "home_street", Description: "300A Revised only"},
		{Name: "home_city", Description: "300A Revised only"},
		{Name: "home_county", Description: "300A Revised only"},
		{Name: "home_state", Description: "300A Revised only"},
		{Name: "date_of_birth", Description: "MM-DD-YYYY, 300A Revised only"},
		{Name: "admission_corp_date", Description: "Date of admission to corps, MM-DD-YYYY"},
		{Name: "admission_school_date", Description: "Date of admission to school (originally), MM-DD-YYYY"},
		{Name: "termination_date", Description: "MM-DD-YYYY"},
		{Name: "termination_type", Enum: []string{"Graduation", "Withdrawal", NullSentinel}},
		{Name: "school_name"},
		{Name: "school_city"},
		{Name: "school_state"},
	},
}

// Header returns the CSV header: every extracted field followed by the file column.
func Header() []string {
	header := make([]string, 0, len(Schema.Fields)+1)
	for _, field := range Schema.Fields {
		header = append(header, field.Name)
	}
	return append(header, FileColumn)
}

// ResponseSchema returns the strict JSON schema sent as the request's
// response_format: every field required, nullable, and no extra keys.
func (d Descriptor) ResponseSchema() json.RawMessage {
	return d.document(true)
}

// ValidationSchema returns the schema responses are validated against. Keys
// may be omitted; an omitted key is read as absent.
func (d Descriptor) ValidationSchema() json.RawMessage {
	return d.document(false)
}

// ValidationURL is the resource name the validation schema is compiled under.
func (d Descriptor) ValidationURL() string {
	return fmt.Sprintf("https://cadet.local/schema/%s/v%d.json", d.Name, d.Version)
}

func (d Descriptor) document(requireAll bool) json.RawMessage {
	properties := make(map[string]any, len(d.Fields))
	required := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		prop := map[string]any{"type": []string{"string", "null"}}
		if field.Description != "" {
			prop["description"] = field.Description
		}
		if len(field.Enum) > 0 {
			enum := make([]any, 0, len(field.Enum)+1)
			for _, v := range field.Enum {
				enum = append(enum, v)
			}
			prop["enum"] = append(enum, nil)
		}
		properties[field.Name] = prop
		required = append(required, field.Name)
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if requireAll {
		doc["required"] = required
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("record: encode schema: %v", err))
	}
	return encoded
}
