package session

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/flow"
	"github.com/garyellow/rentcar-bot/internal/rental"
)

// Kind tags the type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindDecimal
	KindDate
	KindID
	KindPhase
	KindCategory
	KindMode
)

var kindNames = [...]string{"invalid", "string", "int", "decimal", "date", "id", "phase", "category", "mode"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a tagged union of the types a session field can hold.
// The zero Value is invalid and never stored.
type Value struct {
	kind Kind
	s    string
	i    int64
	r    *big.Rat
	t    time.Time
	id   uuid.UUID
}

func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Date(t time.Time) Value {
	return Value{kind: KindDate, t: t}
}
func ID(id uuid.UUID) Value { return Value{kind: KindID, id: id} }
func PhaseValue(p flow.Phase) Value { return Value{kind: KindPhase, s: string(p)} }
func CategoryValue(c rental.Category) Value { return Value{kind: KindCategory, s: string(c)} }
func ModeValue(m rental.BrowseMode) Value { return Value{kind: KindMode, s: string(m)} }

// Decimal stores a copy of r so later mutation by the caller is not visible.
func Decimal(r *big.Rat) Value {
	if r == nil {
		return Value{}
	}
	return Value{kind: KindDecimal, r: new(big.Rat).Set(r)}
}

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds anything.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// The As accessors return false when v holds a different kind.

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }
func (v Value) AsDate() (time.Time, bool) {
	return v.t, v.kind == KindDate
}
func (v Value) AsID() (uuid.UUID, bool) { return v.id, v.kind == KindID }

func (v Value) AsDecimal() (*big.Rat, bool) {
	if v.kind != KindDecimal {
		return nil, false
	}
	return new(big.Rat).Set(v.r), true
}

func (v Value) AsPhase() (flow.Phase, bool) {
	return flow.Phase(v.s), v.kind == KindPhase
}

func (v Value) AsCategory() (rental.Category, bool) {
	return rental.Category(v.s), v.kind == KindCategory
}

func (v Value) AsMode() (rental.BrowseMode, bool) {
	return rental.BrowseMode(v.s), v.kind == KindMode
}
