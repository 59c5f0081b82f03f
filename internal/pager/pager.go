// Package pager encodes list browsing state into component custom ids, so paging
// controls carry everything needed to render the next page.
package pager

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PageSize is the number of sounds shown per page
const PageSize = 25

// version of the token layout; bump when fields change meaning
const version = 1

// ErrDecode is returned (wrapped) for any token that is not a pager state
var ErrDecode = errors.New("not a pager token")

// Context selects which collection is being paged
type Context string

const (
	ContextUser     Context = "user"
	ContextGuild    Context = "guild"
	ContextFavorite Context = "favorite"
)

// Valid reports whether c is a known collection
func (c Context) Valid() bool {
	switch c {
	case ContextUser, ContextGuild, ContextFavorite:
		return true
	default:
		return false
	}
}

// State is everything needed to re-render one page
type State struct {
	Nonce   uint8
	Page    int
	Context Context
}

type token struct {
	V int     `json:"v"`
	N uint8   `json:"n"`
	P int     `json:"p"`
	C Context `json:"c"`
}

// Encode serializes s into a compact custom id
func Encode(s State) (string, error) {
	if !s.Context.Valid() {
		return "", fmt.Errorf("unknown pager context %q", s.Context)
	}
	if s.Page < 0 {
		return "", fmt.Errorf("negative page %d", s.Page)
	}

	b, err := json.Marshal(token{V: version, N: s.Nonce, P: s.Page, C: s.Context})
	if err != nil {
		return "", fmt.Errorf("failed to encode pager state: %w", err)
	}

	return string(b), nil
}

// Decode parses a custom id produced by Encode. Anything else fails with ErrDecode.
func Decode(id string) (State, error) {
	if !strings.HasPrefix(id, "{") {
		return State{}, fmt.Errorf("%w: %q", ErrDecode, id)
	}

	dec := json.NewDecoder(strings.NewReader(id))
	dec.DisallowUnknownFields()

	var t token
	if err := dec.Decode(&t); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if t.V != version {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrDecode, t.V)
	}
	if !t.C.Valid() || t.P < 0 {
		return State{}, fmt.Errorf("%w: invalid state", ErrDecode)
	}

	return State{Nonce: t.N, Page: t.P, Context: t.C}, nil
}

// MaxPage is the last zero-based page index for total items
func MaxPage(total int64) int {
	if total <= 0 {
		return 0
	}
	return int(total / PageSize)
}

// Control is one paging button
type Control struct {
	Label    string
	CustomID string
	Disabled bool
}

// Slot nonces keep the five custom ids of one row distinct
const (
	nonceFirst uint8 = iota
	noncePrev
	nonceCurrent
	nonceNext
	nonceLast
)

// Controls renders first, previous, current, next and last controls for s.
// Each control carries a full state; the current page control is disabled.
func Controls(s State, maxPage int) ([]Control, error) {
	prev := s.Page - 1
	if prev < 0 {
		prev = 0
	}
	next := s.Page + 1
	if next > maxPage {
		next = maxPage
	}

	slots := []struct {
		label    string
		nonce    uint8
		page     int
		disabled bool
	}{
		{"<<", nonceFirst, 0, s.Page == 0},
		{"<", noncePrev, prev, s.Page == 0},
		{fmt.Sprintf("Page %d", s.Page+1), nonceCurrent, s.Page, true},
		{">", nonceNext, next, s.Page >= maxPage},
		{">>", nonceLast, maxPage, s.Page >= maxPage},
	}

	controls := make([]Control, 0, len(slots))
	for _, slot := range slots {
		id, err := Encode(State{Nonce: slot.nonce, Page: slot.page, Context: s.Context})
		if err != nil {
			return nil, err
		}
		controls = append(controls, Control{
			Label:    slot.label,
			CustomID: id,
			Disabled: slot.disabled,
		})
	}

	return controls, nil
}
