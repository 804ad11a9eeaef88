package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxDescriptionLength = 200
	MaxNotesLength       = 500
)

var (
	ErrEmptyDescription   = errors.New("description is required")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrNotesTooLong       = fmt.Errorf("notes too long (max %d characters)", MaxNotesLength)
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrInvalidSeq         = errors.New("invalid sequence number")
)

type (
	// Draft holds the fields an operator can set on a transaction.
	Draft struct {
		Date        Date
		Description string
		Amount      Money
		Category    string
		Method      string
		Notes       string
	}

	// Transaction is a persisted Draft. Seq is 1-based and dense.
	Transaction struct {
		Seq int
		Draft
	}
)

// Normalize trims free-text fields.
func (d Draft) Normalize() Draft {
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Method = strings.TrimSpace(d.Method)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

// Validate checks the draft against the catalog. Errors are of kind
// validation and also match the specific Err* value.
func (d Draft) Validate(c Catalog) error {
	if err := d.Date.Validate(); err != nil {
		return Invalid(ErrInvalidDate)
	}
	if strings.TrimSpace(d.Description) == "" {
		return Invalid(ErrEmptyDescription)
	}
	if utf8.RuneCountInString(d.Description) > MaxDescriptionLength {
		return Invalid(ErrDescriptionTooLong)
	}
	if err := d.Amount.Validate(); err != nil {
		return Invalid(err)
	}
	if !c.HasCategory(d.Category) {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown category %q", d.Category), Err: ErrUnknownCategory}
	}
	if !c.HasMethod(d.Method) {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown payment method %q", d.Method), Err: ErrUnknownMethod}
	}
	if utf8.RuneCountInString(d.Notes) > MaxNotesLength {
		return Invalid(ErrNotesTooLong)
	}
	return nil
}
