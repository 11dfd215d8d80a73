package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		in    string
		ok    bool
		start string
		end   string
	}{
		{"2026-10-20 to 2026-10-22", true, "2026-10-20", "2026-10-22"},
		{"2026-10-20 TO 2026-10-22", true, "2026-10-20", "2026-10-22"},
		{"  2026-10-20 until 2026-10-22 ", true, "2026-10-20", "2026-10-22"},
		{"2026-10-20 - 2026-10-22", true, "2026-10-20", "2026-10-22"},
		{"2026-10-20→2026-10-22", true, "2026-10-20", "2026-10-22"},
		{"2026-10-22 to 2026-10-20", true, "2026-10-22", "2026-10-20"},
		{"2026-02-30 to 2026-03-02", false, "", ""},
		{"2026-10-20", false, "", ""},
		{"next friday to sunday", false, "", ""},
		{"", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, end, ok := ParseDateRange(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ok, LooksLikeDateRange(tt.in))
			if !ok {
				return
			}
			assert.Equal(t, tt.start, start.Format(time.DateOnly))
			assert.Equal(t, tt.end, end.Format(time.DateOnly))
		})
	}
}

func TestLooksLikePhone(t *testing.T) {
	tests := map[string]bool{
		"+1 (555) 123-4567": true,
		"0912 345 678":      true,
		"+49.30.1234567":    true,
		"555-1234":          true,
		"12345":             false,
		"2026-10-20":        false,
		"call me maybe":     false,
		"ana@example.com":   false,
		"+":                 false,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, LooksLikePhone(in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizePhone(" +1 (555) 123-4567 "))
	assert.Equal(t, "0912345678", NormalizePhone("0912.345.678"))
}

func TestLooksLikeEmail(t *testing.T) {
	tests := map[string]bool{
		"ana@example.com":         true,
		" Ana.B@mail.example.org": true,
		"ana@localhost":           false,
		"Ana <ana@example.com>":   false,
		"ana.example.com":         false,
		"":                        false,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, LooksLikeEmail(in))
		})
	}
}

func TestDateLine(t *testing.T) {
	start := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "📅 2026-10-20 → 2026-10-22 (3 day(s))", DateLine(start, start.AddDate(0, 0, 2)))
	assert.Equal(t, "📅 2026-10-20 → 2026-10-20 (1 day(s))", DateLine(start, start))
}
