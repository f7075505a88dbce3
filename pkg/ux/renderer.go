// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package ux renders the terminal chat.
//
// Colors follow the Aleutian teal palette. Output falls back to plain text
// when the writer is not a terminal, when NO_COLOR is set, or when the
// caller asks for it.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianTasks/services/agent/tools"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
const (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorSlate       = lipgloss.Color("#2C4A54")
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Prompt is printed before each line of user input.
const Prompt = "> "

type styles struct {
	title      lipgloss.Style
	reply      lipgloss.Style
	confirm    lipgloss.Style
	muted      lipgloss.Style
	errorStyle lipgloss.Style
	prompt     lipgloss.Style
}

// Renderer writes chat output to a terminal or a plain stream.
type Renderer struct {
	out    io.Writer
	plain  bool
	styles styles
}

// NewRenderer creates a renderer for out. plain forces text without
// styling.
func NewRenderer(out io.Writer, plain bool) *Renderer {
	if !plain {
		plain = !isTerminal(out) || os.Getenv("NO_COLOR") != ""
	}
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:   out,
		plain: plain,
		styles: styles{
			title:      r.NewStyle().Bold(true).Foreground(ColorTealBright),
			reply:      r.NewStyle().Foreground(ColorTealPrimary),
			confirm:    r.NewStyle().Bold(true).Foreground(ColorWarning),
			muted:      r.NewStyle().Foreground(ColorSlate),
			errorStyle: r.NewStyle().Foreground(ColorError),
			prompt:     r.NewStyle().Bold(true).Foreground(ColorTealBright),
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Plain reports whether styling is off.
func (r *Renderer) Plain() bool {
	return r.plain
}

func (r *Renderer) render(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// Banner greets the user at the start of a session.
func (r *Renderer) Banner(userID string) {
	fmt.Fprintln(r.out, r.render(r.styles.title, "Aleutian Tasks"))
	fmt.Fprintln(r.out, r.render(r.styles.muted,
		fmt.Sprintf("Chatting as %s. Type \"exit\" to leave.", userID)))
}

// Prompt prints the input prompt without a newline.
func (r *Renderer) Prompt() {
	fmt.Fprint(r.out, r.render(r.styles.prompt, Prompt))
}

// Reply prints the agent's answer. A reply that waits for a yes/no answer
// is highlighted.
func (r *Renderer) Reply(text string, awaitingConfirmation bool) {
	style := r.styles.reply
	if awaitingConfirmation {
		style = r.styles.confirm
	}
	fmt.Fprintln(r.out, r.render(style, text))
}

// ToolCalls lists executed tools, one per line.
func (r *Renderer) ToolCalls(records []tools.Record) {
	for _, rec := range records {
		mark := "ok"
		if !rec.Result.Success {
			mark = "failed"
		}
		fmt.Fprintln(r.out, r.render(r.styles.muted, fmt.Sprintf("  [%s %s]", rec.Name, mark)))
	}
}

// Suggestion prints a recovery hint.
func (r *Renderer) Suggestion(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintln(r.out, r.render(r.styles.muted, "  ("+text+")"))
}

// Error prints a local failure such as an invalid message.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.out, r.render(r.styles.errorStyle, "! "+err.Error()))
}

// Newline ends the prompt line when input ends.
func (r *Renderer) Newline() {
	fmt.Fprintln(r.out)
}
