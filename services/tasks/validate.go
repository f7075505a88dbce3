// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var taskValidate = validator.New()

// taskFields is the validation view of a create or update request.
// Title is always non-nil on create.
type taskFields struct {
	Title       *string `validate:"omitempty,min=1,max=200"`
	Description *string `validate:"omitempty,max=2000"`
}

// SanitizeTitle trims whitespace and strips angle brackets.
func SanitizeTitle(title string) string {
	title = strings.NewReplacer("<", "", ">", "").Replace(title)
	return strings.TrimSpace(title)
}

func sanitizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	d := strings.TrimSpace(*desc)
	return &d
}

// validateFields checks title and description limits and maps validator
// failures onto the package's typed errors.
func validateFields(title, description *string) error {
	err := taskValidate.Struct(taskFields{Title: title, Description: description})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Title" && fe.Tag() == "min":
		return ErrEmptyTitle
	case fe.Field() == "Title":
		return ErrTitleTooLong
	default:
		return ErrDescriptionTooLong
	}
}
