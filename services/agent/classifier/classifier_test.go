// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"add a task to buy milk", AddTask},
		{"show my pending tasks", ListTasks},
		{"mark it done", CompleteTask},
		{"remove my oldest task", DeleteTask},
		{"Rename the report task", UpdateTask},
		{"I need to call the dentist", AddTask},
		{"What's on my plate?", ListTasks},
		{"I finished the laundry", CompleteTask},
		{"I no longer care about the gym", DeleteTask},
		{"hello there", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"update and then delete task 3", DeleteTask},
		{"delete the completed ones", DeleteTask},
		{"change it and mark it done", UpdateTask},
		// "completed" is listed under list, but "complete" is a substring of
		// it and the complete rule runs first.
		{"show completed tasks", CompleteTask},
		{"show me the new task", ListTasks},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

// TestClassify_DeleteAlwaysWins pairs every delete keyword with every
// keyword of every other rule.
func TestClassify_DeleteAlwaysWins(t *testing.T) {
	table := Rules()
	a := assert.New(t)
	a.Equal(DeleteTask, table[0].Intent)

	for _, del := range table[0].Keywords {
		for _, other := range table[1:] {
			for _, kw := range other.Keywords {
				a.Equal(DeleteTask, Classify(kw+" then "+del), "%q + %q", kw, del)
				a.Equal(DeleteTask, Classify(del+" then "+kw), "%q + %q", del, kw)
			}
		}
	}
}
