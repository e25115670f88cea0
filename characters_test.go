/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := LoadCatalog()
	require.NoError(t, err)
	require.NotZero(t, catalog.Len())

	for _, c := range catalog.characters {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Hints, "character %q has no hints", c.ID)
		assert.NotEmpty(t, c.Image, "character %q has no image", c.ID)

		byID, ok := catalog.ByID(c.ID)
		require.True(t, ok)
		assert.Equal(t, c.Name, byID.Name)
	}
}

func TestPickNeverRepeatsWhileUnusedRemain(t *testing.T) {
	t.Parallel()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	used := make(map[string]bool)

	for i := 0; i < catalog.Len(); i++ {
		ch := catalog.Pick(used)
		assert.False(t, used[ch.ID], "character %q picked twice", ch.ID)
		used[ch.ID] = true
	}

	// Exhausted: the full catalog is reused rather than failing.
	ch := catalog.Pick(used)
	_, ok := catalog.ByID(ch.ID)
	assert.True(t, ok)
}

func TestOptionsContainCorrectNameAmongFourDistinct(t *testing.T) {
	t.Parallel()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	for _, c := range catalog.characters {
		options := catalog.Options(c.Name)

		require.Len(t, options, 4)
		assert.Contains(t, options, c.Name)

		seen := make(map[string]bool, 4)
		for _, o := range options {
			assert.False(t, seen[o], "duplicate option %q", o)
			seen[o] = true
		}
	}
}

func TestOptionsShufflePosition(t *testing.T) {
	t.Parallel()

	catalog, err := LoadCatalog()
	require.NoError(t, err)

	correct := catalog.characters[0].Name

	positions := make(map[int]bool)
	for i := 0; i < 200; i++ {
		options := catalog.Options(correct)
		for pos, o := range options {
			if o == correct {
				positions[pos] = true
			}
		}
	}

	assert.Greater(t, len(positions), 1, "correct answer always landed in the same slot")
}

func TestNormalizeAnswer(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"Pelé", "pele"},
		{"  PELE  ", "pele"},
		{"ALBERT Einstein", "albert einstein"},
		{"Ayrton Senna", "ayrton senna"},
		{"São Paulo", "sao paulo"},
		{"", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, normalizeAnswer(tc.input), "input %q", tc.input)
	}
}
