package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type LineKind string

const (
	LineEvent       LineKind = "event"
	LineCertificate LineKind = "certificate"
)

// CartLine is one entry of a pre-checkout basket. It is a tagged union:
// event lines carry OccurrenceID/MasterClassID, certificate lines carry
// Amount. Certificate lines are keyed by denomination regardless of
// authentication state; certificate rows materialize only at checkout.
type CartLine struct {
	Kind          LineKind        `json:"kind"`
	OccurrenceID  int64           `json:"occurrence_id,omitempty"`
	MasterClassID int64           `json:"masterclass_id,omitempty"`
	Amount        decimal.Decimal `json:"amount,omitempty"`
	Quantity      int             `json:"quantity"`
}

// Valid reports whether the line is a well-formed member of the union.
// Checked at the repository boundary when a stored blob is loaded.
func (l CartLine) Valid() bool {
	if l.Quantity <= 0 {
		return false
	}
	switch l.Kind {
	case LineEvent:
		return l.OccurrenceID > 0 && l.MasterClassID > 0
	case LineCertificate:
		return l.Amount.IsPositive()
	default:
		return false
	}
}

// Key is the opaque cart key of the line: "event_<occurrence>" or
// "certificate_<amount>".
func (l CartLine) Key() string {
	if l.Kind == LineEvent {
		return EventLineKey(l.OccurrenceID)
	}
	return CertificateLineKey(l.Amount)
}

func EventLineKey(occurrenceID int64) string {
	return fmt.Sprintf("event_%d", occurrenceID)
}

func CertificateLineKey(amount decimal.Decimal) string {
	return fmt.Sprintf("certificate_%s", amount.String())
}

// CartState is the persisted cart of one owner: a promo code and a set of
// lines keyed by CartLine.Key. Stored as a single JSON blob per owner key.
type CartState struct {
	PromoCode string              `json:"promo_code,omitempty"`
	Lines     map[string]CartLine `json:"lines"`
}

func NewCartState() *CartState {
	return &CartState{Lines: map[string]CartLine{}}
}

func (s *CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Put inserts or replaces the line under its key. For event lines it first
// drops any line belonging to the same master class, so a cart never holds
// two sessions of one master class: the newest occurrence wins.
func (s *CartState) Put(line CartLine) {
	if s.Lines == nil {
		s.Lines = map[string]CartLine{}
	}
	if line.Kind == LineEvent {
		for key, existing := range s.Lines {
			if existing.Kind == LineEvent && existing.MasterClassID == line.MasterClassID {
				delete(s.Lines, key)
			}
		}
	}
	s.Lines[line.Key()] = line
}

func (s *CartState) Get(key string) (CartLine, bool) {
	line, ok := s.Lines[key]
	return line, ok
}

func (s *CartState) Remove(key string) {
	delete(s.Lines, key)
}

// Clear empties the lines and forgets the promo code.
func (s *CartState) Clear() {
	s.Lines = map[string]CartLine{}
	s.PromoCode = ""
}

// EventLines returns the event lines in unspecified order.
func (s *CartState) EventLines() []CartLine {
	var out []CartLine
	for _, l := range s.Lines {
		if l.Kind == LineEvent {
			out = append(out, l)
		}
	}
	return out
}

// CertificateLines returns the certificate lines in unspecified order.
func (s *CartState) CertificateLines() []CartLine {
	var out []CartLine
	for _, l := range s.Lines {
		if l.Kind == LineCertificate {
			out = append(out, l)
		}
	}
	return out
}
