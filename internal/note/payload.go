package note

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// DefaultColor matches the first pastel of the client palette.
const DefaultColor = "#fde2e4"

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notecolor", func(fl validator.FieldLevel) bool {
		return colorRe.MatchString(fl.Field().String())
	})
	return v
}

// Payload carries the optional note fields of a create or update request.
// Nil means the field was not provided.
type Payload struct {
	Title    *string `json:"title" validate:"omitempty,max=512"`
	Body     *string `json:"body" validate:"omitempty,max=5000"`
	Color    *string `json:"color" validate:"omitempty,notecolor"`
	Pinned   *bool   `json:"pinned"`
	Archived *bool   `json:"archived"`
}

func (p Payload) Empty() bool {
	return p.Title == nil && p.Body == nil && p.Color == nil && p.Pinned == nil && p.Archived == nil
}

// ReorderPayload is the body of an explicit reorder request. A missing order
// is treated as an empty list, which only validates against an empty bucket.
type ReorderPayload struct {
	Order []string `json:"order"`
}

func validatePayload(p Payload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return badRequest("Validation failed")
	}
	issues := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, issueMessage(fe))
	}
	return &ValidationError{Message: "Validation failed", Details: issues}
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldName(fe), fe.Param())
	case "notecolor":
		return "Color must be a 6 digit hex value"
	default:
		return fmt.Sprintf("%s is invalid", fieldName(fe))
	}
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		return "title"
	case "Body":
		return "body"
	case "Color":
		return "color"
	default:
		return fe.Field()
	}
}

func assertFlags(pinned, archived bool) error {
	if pinned && archived {
		return badRequest("A note cannot be both pinned and archived at the same time")
	}
	return nil
}
