// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reference finds which task an utterance points at when the user
// says "task 2", "the last one", "it" or quotes a title instead of giving
// an id.
package reference

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
)

// Kind discriminates a Reference.
type Kind int

const (
	None Kind = iota
	Index
	Name
	Ordinal
)

func (k Kind) String() string {
	switch k {
	case Index:
		return "index"
	case Name:
		return "name"
	case Ordinal:
		return "ordinal"
	default:
		return "none"
	}
}

// Reference is an explicit task reference found in text.
//
//   - Index: N is the 1-based number from "task N".
//   - Name: Text is the quoted title.
//   - Ordinal: Position is 0-based; -1 means last.
type Reference struct {
	Kind     Kind
	N        int
	Text     string
	Position int
}

// Mention is a task seen earlier in the conversation.
type Mention struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
}

var (
	indexPattern  = regexp.MustCompile(`task\s+(\d+)`)
	quotedPattern = regexp.MustCompile(`(?:the\s+)?"([^"]+)"`)
)

type ordinalWord struct {
	word     string
	position int
}

// referenceOrdinals are the words Extract recognizes.
var referenceOrdinals = []ordinalWord{
	{"first", 0},
	{"second", 1},
	{"third", 2},
	{"last", -1},
}

// ordinalTable is scanned in this order by OrdinalPosition; the first
// table entry present in the text wins, regardless of where it appears.
var ordinalTable = []ordinalWord{
	{"first", 0},
	{"second", 1},
	{"third", 2},
	{"fourth", 3},
	{"fifth", 4},
	{"last", -1},
	{"previous", -1},
}

var pronouns = []string{"it", "that", "this", "one", "the one"}

// resolvablePronouns are the pronouns ResolvePronoun maps to the latest
// mention. "one" is left to the ordinal lookup ("the last one").
var resolvablePronouns = []string{"it", "that", "this"}

// Extract returns the first explicit reference in text, trying "task N",
// then a quoted title, then an ordinal word.
func Extract(text string) Reference {
	lower := strings.ToLower(text)

	if m := indexPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Reference{Kind: Index, N: n}
		}
	}
	if m := quotedPattern.FindStringSubmatch(text); m != nil {
		return Reference{Kind: Name, Text: m[1]}
	}
	for _, o := range referenceOrdinals {
		if strings.Contains(lower, o.word) {
			return Reference{Kind: Ordinal, Position: o.position}
		}
	}
	return Reference{Kind: None}
}

// ContainsPronoun reports whether text contains one of the pronouns by
// plain substring match.
func ContainsPronoun(text string) bool {
	return containsAny(strings.ToLower(text), pronouns)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// OrdinalPosition returns the position of the first ordinalTable entry
// found in text.
func OrdinalPosition(text string) (int, bool) {
	lower := strings.ToLower(text)
	for _, o := range ordinalTable {
		if strings.Contains(lower, o.word) {
			return o.position, true
		}
	}
	return 0, false
}

// ResolvePronoun maps a pronoun or ordinal in text to a task id.
//
// # Description
//
// "it", "that" or "this" resolves to the most recent mention. Failing that, an ordinal
// indexes lastList: -1 is the last element, other positions index
// directly. Out-of-range positions resolve to nothing.
//
// # Examples
//
//	recent := []Mention{{TaskID: "A"}, {TaskID: "B"}}
//	id, ok := ResolvePronoun("mark it complete", recent, nil)
//	// id == "B", ok == true
func ResolvePronoun(text string, recent []Mention, lastList []tools.Summary) (string, bool) {
	if containsAny(strings.ToLower(text), resolvablePronouns) && len(recent) > 0 {
		return recent[len(recent)-1].TaskID, true
	}
	pos, ok := OrdinalPosition(text)
	if !ok || len(lastList) == 0 {
		return "", false
	}
	if pos == -1 {
		return lastList[len(lastList)-1].ID, true
	}
	if pos >= 0 && pos < len(lastList) {
		return lastList[pos].ID, true
	}
	return "", false
}

// MatchTitle finds the task whose title is name, ignoring case. Without an
// exact match it accepts a single task whose title contains name.
func MatchTitle(name string, candidates []tools.Summary) (tools.Summary, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return tools.Summary{}, false
	}
	var partial []tools.Summary
	for _, c := range candidates {
		title := strings.ToLower(c.Title)
		if title == want {
			return c, true
		}
		if strings.Contains(title, want) {
			partial = append(partial, c)
		}
	}
	if len(partial) == 1 {
		return partial[0], true
	}
	return tools.Summary{}, false
}
