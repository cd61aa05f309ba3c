package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"valid", "Kale", ""},
		{"empty", "", msgBlank},
		{"whitespace", "   ", msgBlank},
		{"max length", strings.Repeat("a", 255), ""},
		{"too long", strings.Repeat("a", 256), msgMaxLength},
		{"multibyte within limit", strings.Repeat("é", 255), ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateName(tt.input)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("ValidateName(%q) = %v, want nil", tt.input, err)
				}
				return
			}

			v, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := v.Fields["name"]; len(got) != 1 || got[0] != tt.wantMsg {
				t.Errorf("name errors = %v, want [%q]", got, tt.wantMsg)
			}
		})
	}
}

func TestValidatePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price   string
		wantErr string
	}{
		{"5.50", ""},
		{"0", ""},
		{"0.05", ""},
		{"999.99", ""},
		{"5.5", ""},
		{"-1", msgMinZero},
		{"1.234", "Ensure that there are no more than 2 decimal places."},
		{"100000", "Ensure that there are no more than 5 digits in total."},
		{"1000", "Ensure that there are no more than 3 digits before the decimal point."},
		{"1000.5", "Ensure that there are no more than 3 digits before the decimal point."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.price, func(t *testing.T) {
			t.Parallel()

			v := &ValidationError{}
			validatePrice(v, decimal.RequireFromString(tt.price))

			got := v.Fields["price"]
			if tt.wantErr == "" {
				if len(got) != 0 {
					t.Errorf("unexpected errors %v", got)
				}
				return
			}
			if len(got) != 1 || got[0] != tt.wantErr {
				t.Errorf("price errors = %v, want [%q]", got, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"user@example.com", "first.last+tag@sub.example.org"}
	invalid := []string{"", "plain", "user@localhost", "Name <user@example.com>", "@example.com"}

	for _, email := range valid {
		v := &ValidationError{}
		validateEmail(v, email)
		if v.Err() != nil {
			t.Errorf("validateEmail(%q) = %v, want nil", email, v)
		}
	}
	for _, email := range invalid {
		v := &ValidationError{}
		validateEmail(v, email)
		if !v.Has("email") {
			t.Errorf("validateEmail(%q) should fail", email)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Test@EXAMPLE.com":   "Test@example.com",
		"  a@B.org ":         "a@b.org",
		"no-at-sign":         "no-at-sign",
		"user@Sub.Example.IO": "user@sub.example.io",
	}
	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	if v.Err() != nil {
		t.Fatal("empty ValidationError should yield nil")
	}

	v.Add("title", msgBlank)
	v.Add("price", msgRequired)
	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "validation failed: price: This field is required.; title: This field may not be blank." {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(credentialsError(), ErrInvalidCredentials) {
		t.Error("credentials error should unwrap to ErrInvalidCredentials")
	}
}

func TestIDHelpers(t *testing.T) {
	t.Parallel()

	if got := dedupe([]string{"a", "b", "a", "c", "b"}); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("dedupe = %v", got)
	}

	missing, ok := firstMissing([]string{"a", "b", "c"}, []string{"a", "c"})
	if !ok || missing != "b" {
		t.Errorf("firstMissing = %q, %v", missing, ok)
	}
	if _, ok := firstMissing([]string{"a"}, []string{"a"}); ok {
		t.Error("firstMissing should report nothing missing")
	}

	if got := ParseIDList(" a, ,b ,"); strings.Join(got, "|") != "a|b" {
		t.Errorf("ParseIDList = %v", got)
	}
	if ParseIDList("") != nil {
		t.Error("ParseIDList(\"\") should be nil")
	}
}
