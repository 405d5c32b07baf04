package validate

import (
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/model"
)

var fixedNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return newWithClock(func() time.Time { return fixedNow })
}

func validSignup() model.SignupRequest {
	return model.SignupRequest{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        "Secret#123",
		ConfirmPassword: "Secret#123",
		DateOfBirth:     "1990-12-10",
		Gender:          "female",
	}
}

func TestCredentials(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		name      string
		creds     model.Credentials
		wantField string
	}{
		{"valid", model.Credentials{Email: "a.b@example.io", Password: "12345678"}, ""},
		{"bad email", model.Credentials{Email: "a@b", Password: "12345678"}, "email"},
		{"short password", model.Credentials{Email: "a@example.com", Password: "1234567"}, "password"},
		{"missing email", model.Credentials{Password: "12345678"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Credentials(tt.creds)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Credentials() = %v, want nil", err)
				}
				return
			}
			fields := Fields(err)
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("Credentials() fields = %v, want %q", fields, tt.wantField)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		name      string
		mutate    func(r *model.SignupRequest)
		wantField string
	}{
		{"valid", func(*model.SignupRequest) {}, ""},
		{"digits in name", func(r *model.SignupRequest) { r.Name = "Ada 2" }, "name"},
		{"weak password", func(r *model.SignupRequest) { r.Password, r.ConfirmPassword = "password1", "password1" }, "password"},
		{"mismatch", func(r *model.SignupRequest) { r.ConfirmPassword = "Secret#124" }, "confirmPassword"},
		{"minor", func(r *model.SignupRequest) { r.DateOfBirth = "2008-06-16" }, "dateOfBirth"},
		{"bad date", func(r *model.SignupRequest) { r.DateOfBirth = "10/12/1990" }, "dateOfBirth"},
		{"gender", func(r *model.SignupRequest) { r.Gender = "" }, "gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSignup()
			tt.mutate(&req)
			err := v.Signup(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Signup() = %v, want nil", err)
				}
				if req.Age != 35 {
					t.Fatalf("Age = %d, want 35", req.Age)
				}
				return
			}
			fields := Fields(err)
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("Signup() fields = %v, want %q", fields, tt.wantField)
			}
		})
	}
}

func TestAge(t *testing.T) {
	tests := []struct {
		dob  string
		want int
	}{
		{"2008-06-15", 18},
		{"2008-06-16", 17},
		{"2000-01-01", 26},
	}
	for _, tt := range tests {
		t.Run(tt.dob, func(t *testing.T) {
			dob, _ := time.Parse(DateLayout, tt.dob)
			if got := Age(dob, fixedNow); got != tt.want {
				t.Fatalf("Age(%s) = %d, want %d", tt.dob, got, tt.want)
			}
		})
	}
}

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"Secret#123": true,
		"secret#123": false,
		"SECRET#123": false,
		"Secret1234": false,
		"Se#1":       false,
	}
	for p, want := range tests {
		if got := StrongPassword(p); got != want {
			t.Errorf("StrongPassword(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestEventInput(t *testing.T) {
	v := newTestValidator()
	in := model.EventInput{
		Name:      "Go meetup",
		Capacity:  20,
		StartDate: fixedNow,
		EndDate:   fixedNow.Add(2 * time.Hour),
	}
	if err := v.EventInput(in); err != nil {
		t.Fatalf("EventInput() = %v, want nil", err)
	}

	in.EndDate = in.StartDate
	in.Capacity = 0
	fields := Fields(v.EventInput(in))
	if _, ok := fields["endDate"]; !ok {
		t.Fatalf("fields = %v, want endDate", fields)
	}
	if _, ok := fields["capacity"]; !ok {
		t.Fatalf("fields = %v, want capacity", fields)
	}
}
