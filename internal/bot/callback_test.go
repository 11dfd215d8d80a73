package bot

import (
	"testing"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

func TestParseCallback(t *testing.T) {
	t.Parallel()

	c := ParseCallback("CAL_NAV:next:2026-11")
	if c.Key != "CAL_NAV" || len(c.Args) != 2 {
		t.Fatalf("ParseCallback() = %+v", c)
	}
	dir, err := c.Arg(0)
	if err != nil || dir != "next" {
		t.Errorf("Arg(0) = %q, %v", dir, err)
	}
	m, err := c.Month(1)
	if err != nil || m.Month() != 11 || m.Year() != 2026 {
		t.Errorf("Month(1) = %v, %v", m, err)
	}

	if c := ParseCallback("MAIN_MENU"); c.Key != "MAIN_MENU" || len(c.Args) != 0 {
		t.Errorf("ParseCallback(no args) = %+v", c)
	}
}

func TestCallbackTypedArgs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	c := ParseCallback(BuildCallback(KeyBook, id.String(), "2026-10-01", "suv", "gallery", "42"))

	if got, err := c.UUID(0); err != nil || got != id {
		t.Errorf("UUID(0) = %v, %v", got, err)
	}
	if got, err := c.Date(1); err != nil || got.Format(rental.DateLayout) != "2026-10-01" {
		t.Errorf("Date(1) = %v, %v", got, err)
	}
	if got, err := c.Category(2); err != nil || got != rental.SUV {
		t.Errorf("Category(2) = %v, %v", got, err)
	}
	if got, err := c.Mode(3); err != nil || got != rental.ModeGallery {
		t.Errorf("Mode(3) = %v, %v", got, err)
	}
	if got, err := c.Int(4); err != nil || got != 42 {
		t.Errorf("Int(4) = %v, %v", got, err)
	}
}

func TestCallbackMalformedArgs(t *testing.T) {
	t.Parallel()

	c := ParseCallback("BOOK:not-a-uuid:2026-13-40:boat:grid:x")
	checks := map[string]error{}
	_, checks["uuid"] = c.UUID(0)
	_, checks["date"] = c.Date(1)
	_, checks["category"] = c.Category(2)
	_, checks["mode"] = c.Mode(3)
	_, checks["int"] = c.Int(4)
	_, checks["missing"] = c.Arg(9)
	_, checks["negative"] = c.Arg(-1)

	for name, err := range checks {
		if !errors.IsInvalidData(err) {
			t.Errorf("%s: error = %v, want invalid data", name, err)
		}
	}
}

func TestBuildCallback(t *testing.T) {
	t.Parallel()

	if got := BuildCallback(KeyMainMenu); got != "MAIN_MENU" {
		t.Errorf("BuildCallback() = %q", got)
	}
	if got := BuildCallback(KeyCalendarPick, "2026-10-01"); got != "CAL_PICK:2026-10-01" {
		t.Errorf("BuildCallback() = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("BuildCallback() with oversized payload should panic")
		}
	}()
	BuildCallback(KeyBookingCancel, uuid.NewString(), uuid.NewString())
}
