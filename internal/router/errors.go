package router

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// ErrorCode identifies a caller-correctable routing failure.
type ErrorCode string

const (
	CodeEmptyPrompt     ErrorCode = "EMPTY_PROMPT"
	CodeInvalidOverride ErrorCode = "INVALID_OVERRIDE"
)

var (
	ErrEmptyPrompt     = errors.New("prompt must not be empty")
	ErrInvalidOverride = errors.New("override is not a valid intent")
)

// Error carries a code plus a German and an English message. It unwraps to
// ErrEmptyPrompt or ErrInvalidOverride.
type Error struct {
	Code      ErrorCode
	MessageDE string
	MessageEN string
	// Value is the rejected input, if any.
	Value string

	sentinel error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.MessageEN)
}

func (e *Error) Unwrap() error {
	return e.sentinel
}

// Message returns the English message for English tags and German otherwise.
func (e *Error) Message(tag language.Tag) string {
	if base, _ := tag.Base(); base.String() == "en" {
		return e.MessageEN
	}
	return e.MessageDE
}

func emptyPromptError() *Error {
	return &Error{
		Code:      CodeEmptyPrompt,
		MessageDE: "Bitte gib eine Beschreibung für das Bild ein.",
		MessageEN: "Please enter a description for the image.",
		sentinel:  ErrEmptyPrompt,
	}
}

func invalidOverrideError(value string) *Error {
	return &Error{
		Code:      CodeInvalidOverride,
		MessageDE: fmt.Sprintf("Ungültige Absicht %q. Erlaubt sind create_image, edit_image und unknown.", value),
		MessageEN: fmt.Sprintf("Invalid intent %q. Allowed values are create_image, edit_image and unknown.", value),
		Value:     value,
		sentinel:  ErrInvalidOverride,
	}
}
