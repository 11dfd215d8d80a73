package rental

import (
	"math/big"
	"testing"

	"github.com/garyellow/rentcar-bot/internal/errors"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"suv", SUV, false},
		{" Luxury ", Luxury, false},
		{"truck", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) err = %v", tt.in, err)
			}
			if err != nil && !errors.IsInvalidData(err) {
				t.Errorf("expected ErrInvalidData, got %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBrowseMode(t *testing.T) {
	m, err := ParseMode("GALLERY")
	if err != nil || m != ModeGallery {
		t.Fatalf("ParseMode = %q, %v", m, err)
	}
	if m.Toggle() != ModeList || ModeList.Toggle() != ModeGallery {
		t.Error("Toggle should flip between list and gallery")
	}
	if _, err := ParseMode("grid"); !errors.IsInvalidData(err) {
		t.Errorf("expected invalid data, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	start, _ := ParseDate("2026-03-01")
	end, _ := ParseDate("2026-03-04")
	rate, _ := new(big.Rat).SetString("49.90")

	total, err := Quote(start, end, rate)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got := FormatMoney(total); got != "199.60" {
		t.Errorf("total = %s, want 199.60", got)
	}

	sameDay, err := Quote(start, start, rate)
	if err != nil || FormatMoney(sameDay) != "49.90" {
		t.Errorf("same day = %v, %v", sameDay, err)
	}

	if _, err := Quote(end, start, rate); !errors.IsInvalidData(err) {
		t.Errorf("reversed range should be invalid data, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2026-02-30"); !errors.IsInvalidData(err) {
		t.Errorf("expected invalid date, got %v", err)
	}
}
