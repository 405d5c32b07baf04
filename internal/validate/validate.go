// Package validate runs the storefront's client-side form checks. A form
// that fails here never reaches the backend.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the layout of date-of-birth form values.
const DateLayout = "2006-01-02"

// MinAge is the youngest age allowed to sign up.
const MinAge = 18

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]*$`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	// Special characters accepted by the password policy.
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// FieldErrors maps a form field (its JSON name) to a message for the user.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields extracts FieldErrors from err, or nil.
func Fields(err error) FieldErrors {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// Validator wraps a configured go-playground validator.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New returns a Validator with the storefront's custom tags registered.
func New() *Validator {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	out := &Validator{v: v, now: now}
	must(v.RegisterValidation("eventhub_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("eventhub_name", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("eventhub_password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	}))
	must(v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return Age(dob, out.now()) >= MinAge
	}))
	return out
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s and converts failures into FieldErrors.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

// Credentials checks a login form: a well-formed email and a password of at
// least eight characters.
func (v *Validator) Credentials(c model.Credentials) error {
	return v.Struct(c)
}

// Signup checks a signup form and fills in the age derived from the date of
// birth.
func (v *Validator) Signup(req *model.SignupRequest) error {
	if dob, err := time.Parse(DateLayout, req.DateOfBirth); err == nil {
		req.Age = Age(dob, v.now())
	}
	return v.Struct(req)
}

// EventInput checks the admin event form, including date ordering.
func (v *Validator) EventInput(in model.EventInput) error {
	out := FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		out["name"] = "Name is required"
	}
	if in.Capacity <= 0 {
		out["capacity"] = "Capacity must be a positive number"
	}
	if in.Price < 0 {
		out["price"] = "Price cannot be negative"
	}
	if err := EventDates(in.StartDate, in.EndDate); err != nil {
		out["endDate"] = err.Error()
	}
	if len(out) > 0 {
		return out
	}
	return nil
}

// EventDates requires both dates and an end strictly after the start.
func EventDates(start, end time.Time) error {
	switch {
	case start.IsZero() || end.IsZero():
		return errors.New("Start and end dates are required")
	case !end.After(start):
		return errors.New("End date must be after the start date")
	}
	return nil
}

// StrongPassword reports whether p has at least eight characters and mixes
// upper case, lower case and a special character.
func StrongPassword(p string) bool {
	return len(p) >= 8 &&
		upperPattern.MatchString(p) &&
		lowerPattern.MatchString(p) &&
		specialPattern.MatchString(p)
}

// Age returns the number of whole years between dob and now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "eventhub_email":
		return "Invalid email address"
	case "eventhub_name":
		return "Name can contain only letters and spaces"
	case "eventhub_password":
		return "Password must be at least 8 characters with upper case, lower case and a special character"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "adult":
		return fmt.Sprintf("You must be at least %d years old", MinAge)
	case "oneof":
		return "Choose one of: " + fe.Param()
	}
	return "Invalid value"
}
