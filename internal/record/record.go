package record

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// NullSentinel is the literal the model uses for enumerations it cannot read.
// It is preserved verbatim and is distinct from an absent (JSON null) value.
const NullSentinel = "null"

// Record is one transcribed Nurse Cadet Corps card. Nil fields were absent in
// the model response and serialise to empty CSV cells.
type Record struct {
	CardType            *string `json:"card_type"`
	SerialNumber        *string `json:"serial_number"`
	LastName            *string `json:"last_name"`
	FirstName           *string `json:"first_name"`
	MiddleName          *string `json:"middle_name"`
	HomeStreet          *string `json:"home_street"`
	HomeCity            *string `json:"home_city"`
	HomeCounty          *string `json:"home_county"`
	HomeState           *string `json:"home_state"`
	DateOfBirth         *string `json:"date_of_birth"`
	AdmissionCorpDate   *string `json:"admission_corp_date"`
	AdmissionSchoolDate *string `json:"admission_school_date"`
	TerminationDate     *string `json:"termination_date"`
	TerminationType     *string `json:"termination_type"`
	SchoolName          *string `json:"school_name"`
	SchoolCity          *string `json:"school_city"`
	SchoolState         *string `json:"school_state"`

	// File is the ledger key of the source image; it is never requested from the model.
	File string `json:"file"`
}

// FileColumn is the trailing CSV column holding the item's ledger key.
const FileColumn = "file"

// Row returns the CSV cells in header order.
func (r Record) Row() []string {
	return []string{
		text(r.CardType),
		text(r.SerialNumber),
		text(r.LastName),
		text(r.FirstName),
		text(r.MiddleName),
		text(r.HomeStreet),
		text(r.HomeCity),
		text(r.HomeCounty),
		text(r.HomeState),
		text(r.DateOfBirth),
		text(r.AdmissionCorpDate),
		text(r.AdmissionSchoolDate),
		text(r.TerminationDate),
		text(r.TerminationType),
		text(r.SchoolName),
		text(r.SchoolCity),
		text(r.SchoolState),
		r.File,
	}
}

// IsBlank reports whether the identity-bearing fields (first name, last name,
// serial number) are all empty or all the literal "null".
func (r Record) IsBlank() bool {
	identity := []*string{r.FirstName, r.LastName, r.SerialNumber}
	allEmpty, allNull := true, true
	for _, v := range identity {
		if strings.TrimSpace(text(v)) != "" {
			allEmpty = false
		}
		if v == nil || *v != NullSentinel {
			allNull = false
		}
	}
	return allEmpty || allNull
}

// Get returns a field by column name. The second result is false when the
// field is absent or the name is unknown.
func (r *Record) Get(name string) (string, bool) {
	ptr, ok := r.fields()[name]
	if !ok || *ptr == nil {
		return "", false
	}
	return **ptr, true
}

// fields maps extracted column names to the record's storage.
func (r *Record) fields() map[string]**string {
	return map[string]**string{
		"card_type":             &r.CardType,
		"serial_number":         &r.SerialNumber,
		"last_name":             &r.LastName,
		"first_name":            &r.FirstName,
		"middle_name":           &r.MiddleName,
		"home_street":           &r.HomeStreet,
		"home_city":             &r.HomeCity,
		"home_county":           &r.HomeCounty,
		"home_state":            &r.HomeState,
		"date_of_birth":         &r.DateOfBirth,
		"admission_corp_date":   &r.AdmissionCorpDate,
		"admission_school_date": &r.AdmissionSchoolDate,
		"termination_date":      &r.TerminationDate,
		"termination_type":      &r.TerminationType,
		"school_name":           &r.SchoolName,
		"school_city":           &r.SchoolCity,
		"school_state":          &r.SchoolState,
	}
}

// FromDocument builds a record from a decoded JSON object. Missing keys and
// JSON null become absent fields. Keys outside the schema are ignored here;
// the validation schema is what rejects them. A non-string value is an error.
func FromDocument(doc map[string]any) (Record, error) {
	var rec Record
	fields := rec.fields()
	for _, field := range Schema.Fields {
		raw, ok := doc[field.Name]
		if !ok || raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return Record{}, fmt.Errorf("field %s: expected string or null, got %T", field.Name, raw)
		}
		*fields[field.Name] = &value
	}
	return rec, nil
}

// Canonicalize rewrites enumerated values that match an allowed value
// case-insensitively (for example "graduation") to the allowed spelling.
// Values matching nothing are left for validation to reject.
func Canonicalize(doc map[string]any) {
	fold := cases.Fold()
	for _, field := range Schema.Fields {
		if len(field.Enum) == 0 {
			continue
		}
		value, ok := doc[field.Name].(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if slices.Contains(field.Enum, trimmed) {
			doc[field.Name] = trimmed
			continue
		}
		folded := fold.String(trimmed)
		for _, allowed := range field.Enum {
			if fold.String(allowed) == folded {
				doc[field.Name] = allowed
				break
			}
		}
	}
}

// CheckFieldOrder verifies that Row lays cells out in Header order. It tags
// every field with its own column name and compares the resulting row.
// pipeline.New calls it before any row is written.
func CheckFieldOrder() error {
	var tagged Record
	for name, ptr := range tagged.fields() {
		value := name
		*ptr = &value
	}
	tagged.File = FileColumn
	row := tagged.Row()
	header := Header()
	if !slices.Equal(row, header) {
		return fmt.Errorf("record row order %v does not match header %v", row, header)
	}
	return nil
}

// String returns a pointer to s, for building records in code.
func String(s string) *string {
	return &s
}

func text(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
