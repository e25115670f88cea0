/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed characters.json
var charactersJSON []byte

// extraNames pads the distractor pool so answer options stay varied
// even with a small catalog.
var extraNames = []string{
	"Charles Darwin",
	"Coco Chanel",
	"Elvis Presley",
	"Greta Garbo",
	"Harry Houdini",
	"Joan of Arc",
	"Mahatma Gandhi",
	"Neil Armstrong",
	"Nikola Tesla",
	"Santos Dumont",
	"Vincent van Gogh",
	"William Shakespeare",
}

// Character is one quiz subject. Catalog data is immutable after load and
// shared read-only across all rooms.
type Character struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Hints []string `json:"hints"`
	Image string   `json:"image"`
}

type Catalog struct {
	characters []Character
	byID       map[string]Character
	names      []string
}

func LoadCatalog() (*Catalog, error) {
	var characters []Character

	if err := json.Unmarshal(charactersJSON, &characters); err != nil {
		return nil, fmt.Errorf("parsing character catalog: %w", err)
	}

	if len(characters) == 0 {
		return nil, errors.New("character catalog is empty")
	}

	byID := make(map[string]Character, len(characters))
	names := make([]string, 0, len(characters)+len(extraNames))

	for _, c := range characters {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("character %q is missing an id or name", c.Name)
		}
		if _, exists := byID[c.ID]; exists {
			return nil, fmt.Errorf("duplicate character id %q", c.ID)
		}
		byID[c.ID] = c
		names = append(names, c.Name)
	}

	names = append(names, extraNames...)

	return &Catalog{
		characters: characters,
		byID:       byID,
		names:      names,
	}, nil
}

func (c *Catalog) Len() int {
	return len(c.characters)
}

func (c *Catalog) ByID(id string) (Character, bool) {
	ch, ok := c.byID[id]

	return ch, ok
}

// Pick returns a uniformly random character not yet in used. Once the
// catalog is exhausted it falls back to the full catalog rather than failing.
func (c *Catalog) Pick(used map[string]bool) Character {
	pool := make([]Character, 0, len(c.characters))
	for _, ch := range c.characters {
		if !used[ch.ID] {
			pool = append(pool, ch)
		}
	}

	if len(pool) == 0 {
		pool = c.characters
	}

	return pool[rand.Intn(len(pool))]
}

// Options builds the multiple-choice set for a round: the correct name plus
// three distinct distractors, shuffled so the answer's position is not
// predictable.
func (c *Catalog) Options(correctName string) []string {
	wrong := make([]string, 0, len(c.names))
	for _, name := range c.names {
		if name != correctName {
			wrong = append(wrong, name)
		}
	}

	rand.Shuffle(len(wrong), func(i, j int) {
		wrong[i], wrong[j] = wrong[j], wrong[i]
	})

	if len(wrong) > 3 {
		wrong = wrong[:3]
	}

	options := append([]string{correctName}, wrong...)

	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return options
}

// normalizeAnswer lowercases, trims, and strips diacritics so that
// "Pelé", " pele " and "PELE" all compare equal. The transform chain is
// stateful, so each call builds its own.
func normalizeAnswer(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.ToLower(strings.TrimSpace(stripped))
}
