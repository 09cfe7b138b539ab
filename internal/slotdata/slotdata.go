// Package slotdata decodes the per-slot configuration the server hands out
// after a successful Connect.
package slotdata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"soulslink.ai/internal/apperr"
	"soulslink.ai/internal/game"
)

// DeathLinkMode selects which local deaths are shared with other slots.
type DeathLinkMode uint8

const (
	DeathLinkOff DeathLinkMode = iota
	DeathLinkAnyDeath
	// DeathLinkLostSouls only counts deaths while an earlier bloodstain is
	// still unrecovered.
	DeathLinkLostSouls
)

func (m DeathLinkMode) String() string {
	switch m {
	case DeathLinkOff:
		return "off"
	case DeathLinkAnyDeath:
		return "any_death"
	case DeathLinkLostSouls:
		return "lost_souls"
	default:
		return fmt.Sprintf("death_link(%d)", uint8(m))
	}
}

func (m *DeathLinkMode) UnmarshalJSON(b []byte) error {
	var n uint8
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n > uint8(DeathLinkLostSouls) {
		return fmt.Errorf("unknown death_link mode %d", n)
	}
	*m = DeathLinkMode(n)
	return nil
}

const DefaultDeathLinkAmnesty = 1

// Options are the player options shared by every supported game.
type Options struct {
	DeathLink        DeathLinkMode `json:"death_link"`
	DeathLinkAmnesty uint8         `json:"death_link_amnesty"`
	EnableDLC        bool          `json:"enable_dlc,omitempty"`
}

// DefaultOptions is the value decoding starts from; absent fields keep it.
func DefaultOptions() Options {
	return Options{DeathLinkAmnesty: DefaultDeathLinkAmnesty}
}

// ItemTable maps server item ids to local items.
type ItemTable struct {
	IDs    map[int64]game.ItemID `json:"apIdsToItemIds"`
	Counts map[int64]uint32      `json:"itemCounts"`
}

// Lookup returns the local item and quantity for a server item id. Quantity
// defaults to 1.
func (t ItemTable) Lookup(apID int64) (game.ItemID, uint32, bool) {
	id, ok := t.IDs[apID]
	if !ok {
		return 0, 0, false
	}
	q, ok := t.Counts[apID]
	if !ok || q == 0 {
		q = 1
	}
	return id, q, true
}

// Decoder validates raw slot data against a JSON schema and decodes it into T.
type Decoder[T any] struct {
	schema *jsonschema.Schema
	init   func() T
}

// NewDecoder compiles schema once. init supplies the value decoding starts
// from, so fields absent from the document keep their defaults.
func NewDecoder[T any](name, schema string, init func() T) (*Decoder[T], error) {
	s, err := jsonschema.CompileString(name, schema)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if init == nil {
		init = func() T {
			var zero T
			return zero
		}
	}
	return &Decoder[T]{schema: s, init: init}, nil
}

func MustDecoder[T any](name, schema string, init func() T) *Decoder[T] {
	d, err := NewDecoder(name, schema, init)
	if err != nil {
		panic(err)
	}
	return d
}

// Decode returns a data-integrity error when raw does not match the schema or
// cannot be decoded.
func (d *Decoder[T]) Decode(raw json.RawMessage) (T, error) {
	out := d.init()
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, apperr.New(apperr.CodeDataIntegrity, "slot data missing")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return out, apperr.Wrap(apperr.CodeDataIntegrity, "slot data is not valid JSON", err)
	}
	if err := d.schema.Validate(doc); err != nil {
		return out, apperr.Wrap(apperr.CodeDataIntegrity, "slot data does not match this client", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apperr.Wrap(apperr.CodeDataIntegrity, "decode slot data", err)
	}
	return out, nil
}
