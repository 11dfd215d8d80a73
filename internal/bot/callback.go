package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/errors"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

// Callback keys. Several keys share a prefix (BOOK, BOOKING, BOOKING_CANCEL);
// resolution picks the longest registered key.
const (
	KeyMainMenu      = "MAIN_MENU"
	KeyBack          = "BACK"
	KeyBrowse        = "BROWSE"
	KeyCategory      = "CATEGORY"
	KeyCar           = "CAR"
	KeyMode          = "MODE"
	KeyBook          = "BOOK"
	KeyCalendarNav   = "CAL_NAV"
	KeyCalendarPick  = "CAL_PICK"
	KeyConfirm       = "CONFIRM"
	KeyAbort         = "ABORT"
	KeyMyBookings    = "MY_BOOKINGS"
	KeyBooking       = "BOOKING"
	KeyBookingCancel = "BOOKING_CANCEL"
	KeyBookingEdit   = "BOOKING_EDIT"
	KeyEditConfirm   = "EDIT_CONFIRM"
	KeyNoop          = "NOOP"
)

// CallbackSeparator splits a payload into key and arguments.
const CallbackSeparator = ":"

// MaxCallbackData is the payload limit of the chat transport, in bytes.
const MaxCallbackData = 64

// MonthLayout formats calendar months in payloads.
const MonthLayout = "2006-01"

// Callback is a parsed "KEY[:arg1[:arg2...]]" payload.
type Callback struct {
	Key  string
	Args []string
}

// ParseCallback splits a payload. It never fails; argument helpers report
// malformed input.
func ParseCallback(data string) Callback {
	parts := strings.Split(data, CallbackSeparator)
	return Callback{Key: parts[0], Args: parts[1:]}
}

// BuildCallback joins a key and its arguments. It panics if the payload
// exceeds MaxCallbackData, which only happens for a programming error.
func BuildCallback(key string, args ...string) string {
	data := key
	if len(args) > 0 {
		data += CallbackSeparator + strings.Join(args, CallbackSeparator)
	}
	if len(data) > MaxCallbackData {
		panic(fmt.Sprintf("bot: callback payload %q exceeds %d bytes", data, MaxCallbackData))
	}
	return data
}

func (c Callback) invalid(i int, what string) error {
	return errors.NewValidationError("callback", fmt.Sprintf("%s argument %d: want %s, got %s", c.Key, i, what, c.describe(i)))
}

func (c Callback) describe(i int) string {
	if i < 0 || i >= len(c.Args) {
		return "missing"
	}
	return strconv.Quote(c.Args[i])
}

// Arg returns argument i.
func (c Callback) Arg(i int) (string, error) {
	if i < 0 || i >= len(c.Args) || c.Args[i] == "" {
		return "", c.invalid(i, "a value")
	}
	return c.Args[i], nil
}

// Int parses argument i as a base-10 integer.
func (c Callback) Int(i int) (int64, error) {
	s, err := c.Arg(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, c.invalid(i, "int")
	}
	return n, nil
}

// UUID parses argument i as an entity id.
func (c Callback) UUID(i int) (uuid.UUID, error) {
	s, err := c.Arg(i)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, c.invalid(i, "uuid")
	}
	return id, nil
}

// Date parses argument i as YYYY-MM-DD.
func (c Callback) Date(i int) (time.Time, error) {
	s, err := c.Arg(i)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(rental.DateLayout, s)
	if err != nil {
		return time.Time{}, c.invalid(i, "date")
	}
	return d, nil
}

// Month parses argument i as YYYY-MM and returns the first day of the month.
func (c Callback) Month(i int) (time.Time, error) {
	s, err := c.Arg(i)
	if err != nil {
		return time.Time{}, err
	}
	m, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, c.invalid(i, "month")
	}
	return m, nil
}

// Category parses argument i as a car category.
func (c Callback) Category(i int) (rental.Category, error) {
	s, err := c.Arg(i)
	if err != nil {
		return "", err
	}
	cat, err := rental.ParseCategory(s)
	if err != nil {
		return "", c.invalid(i, "category")
	}
	return cat, nil
}

// Mode parses argument i as a browse mode.
func (c Callback) Mode(i int) (rental.BrowseMode, error) {
	s, err := c.Arg(i)
	if err != nil {
		return "", err
	}
	m, err := rental.ParseMode(s)
	if err != nil {
		return "", c.invalid(i, "mode")
	}
	return m, nil
}
