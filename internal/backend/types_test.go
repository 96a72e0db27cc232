package backend

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`{"id": 42}`, "42"},
		{`{"id": "42"}`, "42"},
		{`{"id": "abc"}`, "abc"},
		{`{"id": null}`, ""},
	}
	for _, tt := range tests {
		var c Conversation
		if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if c.ID != tt.want {
			t.Errorf("Unmarshal(%s).ID = %q, want %q", tt.in, c.ID, tt.want)
		}
	}
}

func TestIDMarshal(t *testing.T) {
	data, _ := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{"7", "x"})
	if string(data) != `{"a":7,"b":"x"}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00.000000Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		if got := ParseTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
