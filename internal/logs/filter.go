package logs

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/manolodalbo/nurse-cadet/internal/logging"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Fields    map[string]any
	Raw       string
}

// Parse decodes a line written by the JSON handler. Lines that are not JSON
// objects are returned as messages with no fields.
func Parse(line string) Entry {
	var doc map[string]any
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		return Entry{Message: line, Raw: line}
	}
	entry := Entry{Raw: line, Fields: map[string]any{}}
	for key, value := range doc {
		switch key {
		case "ts":
			if s, ok := value.(string); ok {
				entry.Time, _ = time.Parse(time.RFC3339, s)
			}
		case "level":
			entry.Level, _ = value.(string)
		case "msg":
			entry.Message, _ = value.(string)
		case logging.FieldComponent:
			entry.Component, _ = value.(string)
		default:
			entry.Fields[key] = value
		}
	}
	return entry
}

// Field returns a field rendered as text, or "" when absent.
func (e Entry) Field(key string) string {
	value, ok := e.Fields[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level  string
	RunID  string
	Unit   string
	Event  string
	Search string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Match reports whether e passes every configured condition.
func (f Filter) Match(e Entry) bool {
	if f.Level != "" {
		want, ok := levelRank[strings.ToLower(f.Level)]
		if got, known := levelRank[e.Level]; ok && known && got < want {
			return false
		}
	}
	if f.RunID != "" && !strings.HasPrefix(e.Field(logging.FieldRunID), f.RunID) {
		return false
	}
	if f.Unit != "" && e.Field(logging.FieldUnit) != f.Unit {
		return false
	}
	if f.Event != "" && e.Field(logging.FieldEventType) != f.Event {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Raw), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Format renders e in the console layout: "ts LEVEL component: message k=v".
// Fields are sorted by key.
func Format(e Entry) string {
	if e.Fields == nil {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(e.Level))
	b.WriteByte(' ')
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	for _, key := range slices.Sorted(maps.Keys(e.Fields)) {
		value := e.Field(key)
		if strings.ContainsAny(value, " \t\"=") {
			value = fmt.Sprintf("%q", value)
		}
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}
