package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

// Formats are the predefined patterns a field can opt into through
// Rules.Format. email is checked by the validator package instead.
var Formats = map[string]*regexp.Regexp{
	"phone": regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`),
	"cpf":   regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`),
	"cnpj":  regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`),
	"date":  regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	"cep":   regexp.MustCompile(`^\d{5}-\d{3}$`),
}

const formatEmail = "email"

var validate = validator.New()

// Violation is one field that failed validation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation of a fill request.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "template fields invalid: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// CheckDefinition reports problems with the field itself, as opposed to a
// value entered for it.
func (f Field) CheckDefinition() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: field name is required", ErrInvalid)
	}
	if strings.ContainsAny(f.Name, "{}") {
		return fmt.Errorf("%w: field name %q may not contain braces", ErrInvalid, f.Name)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: field %s has unknown type %q", ErrInvalid, f.Name, f.Kind)
	}
	if f.Default.Value != nil && f.Default.Kind() != f.Kind {
		return fmt.Errorf("%w: field %s default is %s, want %s", ErrInvalid, f.Name, f.Default.Kind(), f.Kind)
	}
	if f.Kind == fields.KindSelect && len(f.Options) == 0 {
		return fmt.Errorf("%w: select field %s needs options", ErrInvalid, f.Name)
	}
	if f.Rules.Pattern != "" {
		if _, err := regexp.Compile(f.Rules.Pattern); err != nil {
			return fmt.Errorf("%w: field %s pattern: %v", ErrInvalid, f.Name, err)
		}
	}
	if fm := f.Rules.Format; fm != "" && fm != formatEmail && Formats[fm] == nil {
		return fmt.Errorf("%w: field %s has unknown format %q", ErrInvalid, f.Name, fm)
	}
	return nil
}

// Validate checks raw, the text entered for f. Rules run in order and the
// first failing one is reported.
func (f Field) Validate(raw string) *Violation {
	value := strings.TrimSpace(raw)
	fail := func(format string, args ...interface{}) *Violation {
		return &Violation{Field: f.Name, Message: f.label() + " " + fmt.Sprintf(format, args...)}
	}

	if value == "" {
		if f.Required {
			return fail("is required")
		}
		return nil
	}
	n := utf8.RuneCountInString(value)
	if f.Rules.MinLength > 0 && n < f.Rules.MinLength {
		return fail("must be at least %d characters", f.Rules.MinLength)
	}
	if f.Rules.MaxLength > 0 && n > f.Rules.MaxLength {
		return fail("must be at most %d characters", f.Rules.MaxLength)
	}
	if f.Rules.Pattern != "" {
		re, err := regexp.Compile(f.Rules.Pattern)
		if err != nil || !re.MatchString(value) {
			return fail("has an invalid format")
		}
	}
	switch fm := f.Rules.Format; {
	case fm == formatEmail:
		if validate.Var(value, "email") != nil {
			return fail("has an invalid format")
		}
	case fm != "":
		if re := Formats[fm]; re == nil || !re.MatchString(value) {
			return fail("has an invalid format")
		}
	}
	if _, err := fields.Parse(f.Kind, value); err != nil {
		return fail("is not a valid %s", f.Kind)
	}
	if f.Kind == fields.KindSelect && !slices.Contains(f.Options, value) {
		return fail("must be one of %s", strings.Join(f.Options, ", "))
	}
	return nil
}

// ValidateAll checks every field against values and returns all violations
// in field order.
func ValidateAll(fs []Field, values map[string]string) []Violation {
	var out []Violation
	for _, f := range fs {
		if v := f.Validate(values[f.Name]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}
