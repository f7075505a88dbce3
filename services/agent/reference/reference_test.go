// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		text string
		want Reference
	}{
		{`delete "buy milk"`, Reference{Kind: Name, Text: "buy milk"}},
		{"delete task 2", Reference{Kind: Index, N: 2}},
		{"delete the last one", Reference{Kind: Ordinal, Position: -1}},
		{"Complete Task   12 please", Reference{Kind: Index, N: 12}},
		{`remove the "Call Mom" task`, Reference{Kind: Name, Text: "Call Mom"}},
		{"finish the second", Reference{Kind: Ordinal, Position: 1}},
		{"drop the first and the last", Reference{Kind: Ordinal, Position: 0}},
		{"delete groceries", Reference{Kind: None}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_IndexBeatsQuoted(t *testing.T) {
	got := Extract(`rename task 3 to "walk dog"`)
	assert.Equal(t, Index, got.Kind)
	assert.Equal(t, 3, got.N)
}

func TestContainsPronoun(t *testing.T) {
	assert.True(t, ContainsPronoun("mark it complete"))
	assert.True(t, ContainsPronoun("delete THAT"))
	assert.True(t, ContainsPronoun("the one about taxes"))
	assert.False(t, ContainsPronoun("add buy milk"))
}

func TestOrdinalPosition_TableOrder(t *testing.T) {
	// "first" precedes "last" in the table even though "last" comes first
	// in the text.
	pos, ok := OrdinalPosition("the last or the first")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = OrdinalPosition("the previous one")
	require.True(t, ok)
	assert.Equal(t, -1, pos)

	pos, ok = OrdinalPosition("the fifth")
	require.True(t, ok)
	assert.Equal(t, 4, pos)

	_, ok = OrdinalPosition("nothing here")
	assert.False(t, ok)
}

func TestResolvePronoun(t *testing.T) {
	recent := []Mention{{TaskID: "A", Title: "a"}, {TaskID: "B", Title: "b"}}
	list := []tools.Summary{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}

	t.Run("most recent mention", func(t *testing.T) {
		id, ok := ResolvePronoun("mark it complete", recent, list)
		require.True(t, ok)
		assert.Equal(t, "B", id)
	})

	t.Run("last ordinal", func(t *testing.T) {
		id, ok := ResolvePronoun("delete the last task", nil, list)
		require.True(t, ok)
		assert.Equal(t, "t3", id)
	})

	t.Run("pronoun without mentions falls to ordinal", func(t *testing.T) {
		id, ok := ResolvePronoun("delete the second one", nil, list)
		require.True(t, ok)
		assert.Equal(t, "t2", id)
	})

	t.Run("one is an ordinal not a pronoun", func(t *testing.T) {
		id, ok := ResolvePronoun("delete the last one", recent, list)
		require.True(t, ok)
		assert.Equal(t, "t3", id)

		id, ok = ResolvePronoun("remove the second one", recent, list)
		require.True(t, ok)
		assert.Equal(t, "t2", id)
	})

	t.Run("one still counts for the context hint", func(t *testing.T) {
		assert.True(t, ContainsPronoun("the one from before"))
	})

	t.Run("out of range", func(t *testing.T) {
		_, ok := ResolvePronoun("the fifth", nil, list)
		assert.False(t, ok)
	})

	t.Run("no list", func(t *testing.T) {
		_, ok := ResolvePronoun("the first", nil, nil)
		assert.False(t, ok)
	})
}

func TestMatchTitle(t *testing.T) {
	list := []tools.Summary{
		{ID: "1", Title: "Buy milk"},
		{ID: "2", Title: "Buy milk and eggs"},
		{ID: "3", Title: "Call mom"},
	}

	got, ok := MatchTitle("buy milk", list)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)

	got, ok = MatchTitle("mom", list)
	require.True(t, ok)
	assert.Equal(t, "3", got.ID)

	_, ok = MatchTitle("buy", list)
	assert.False(t, ok, "ambiguous partial match")

	_, ok = MatchTitle("  ", list)
	assert.False(t, ok)
}
