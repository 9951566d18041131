// Package pokemon defines the reference-data entity served by the PokeAPI
// and held by the lookup cache and the favorites store.
package pokemon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Strob0t/dexcache/internal/domain"
)

// NamedResource is the PokeAPI name/url pair used for types, abilities and stats.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// TypeSlot is one of a Pokemon's elemental types.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// AbilitySlot is one of a Pokemon's abilities.
type AbilitySlot struct {
	Slot     int           `json:"slot"`
	IsHidden bool          `json:"is_hidden"`
	Ability  NamedResource `json:"ability"`
}

// StatEntry is a single base stat as reported upstream.
type StatEntry struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// Pokemon is the subset of the upstream record the service keeps.
type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height,omitempty"`
	Weight         int           `json:"weight,omitempty"`
	BaseExperience int           `json:"base_experience,omitempty"`
	Types          []TypeSlot    `json:"types,omitempty"`
	Abilities      []AbilitySlot `json:"abilities,omitempty"`
	Stats          []StatEntry   `json:"stats,omitempty"`
}

// BaseStats is the flattened six-stat view of a Pokemon.
type BaseStats struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

// Validate reports ErrMalformedEntity when the record is nil or has no usable
// identifier.
func (p *Pokemon) Validate() error {
	if p == nil {
		return fmt.Errorf("pokemon: %w", domain.ErrMalformedEntity)
	}
	if p.ID <= 0 {
		return fmt.Errorf("pokemon %q: %w", p.Name, domain.ErrMalformedEntity)
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with a store.
func (p *Pokemon) Clone() Pokemon {
	c := *p
	if p.Types != nil {
		c.Types = append([]TypeSlot(nil), p.Types...)
	}
	if p.Abilities != nil {
		c.Abilities = append([]AbilitySlot(nil), p.Abilities...)
	}
	if p.Stats != nil {
		c.Stats = append([]StatEntry(nil), p.Stats...)
	}
	return c
}

// TypeNames returns the type names ordered by slot as reported upstream.
func (p *Pokemon) TypeNames() []string {
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// BaseStats flattens the upstream stat list. Unknown stat names are ignored.
func (p *Pokemon) BaseStats() BaseStats {
	var s BaseStats
	for _, e := range p.Stats {
		switch e.Stat.Name {
		case "hp":
			s.HP = e.BaseStat
		case "attack":
			s.Attack = e.BaseStat
		case "defense":
			s.Defense = e.BaseStat
		case "special-attack":
			s.SpecialAttack = e.BaseStat
		case "special-defense":
			s.SpecialDefense = e.BaseStat
		case "speed":
			s.Speed = e.BaseStat
		}
	}
	return s
}

// Decode parses a raw upstream payload and validates it.
func Decode(raw []byte) (*Pokemon, error) {
	var p Pokemon
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pokemon: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// NormalizeKey turns a caller-supplied name or numeric id into a cache key.
// Names are case-insensitive upstream; numeric ids lose leading zeros.
func NormalizeKey(nameOrID string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(nameOrID))
	if key == "" {
		return "", fmt.Errorf("%w: name or id is required", domain.ErrValidation)
	}
	if strings.ContainsAny(key, "/?#") {
		return "", fmt.Errorf("%w: invalid name or id %q", domain.ErrValidation, nameOrID)
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n <= 0 {
			return "", fmt.Errorf("%w: id must be positive", domain.ErrValidation)
		}
		return strconv.Itoa(n), nil
	}
	return key, nil
}
