package task

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

var (
	ErrNotFound     = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
	ErrNameRequired = fmt.Errorf("%w: name is required", ErrInvalidTask)
	ErrNameTooLong  = fmt.Errorf("%w: name must be at most %d characters", ErrInvalidTask, MaxNameLength)
	ErrDescTooLong  = fmt.Errorf("%w: description must be at most %d characters", ErrInvalidTask, MaxDescriptionLength)
)

type Task struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// Validate checks the field constraints shared by create and update.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(t.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescTooLong
	}
	return nil
}
