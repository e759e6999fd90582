package spark

import (
	"errors"
	"testing"

	"github.com/sparkier-io/sparkier/internal/domain"
)

func TestNormalizeDuration(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"allowed 15", 15, 15},
		{"allowed 30", 30, 30},
		{"allowed 45", 45, 45},
		{"allowed 60", 60, 60},
		{"allowed 90", 90, 90},
		{"allowed 120", 120, 120},
		{"zero collapses", 0, 60},
		{"negative collapses", -30, 60},
		{"odd value collapses", 75, 60},
		{"too large collapses", 240, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDuration(tt.in); got != tt.want {
				t.Errorf("NormalizeDuration(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"audit-securite", "a", "spark-101", "x9"}
	for _, s := range valid {
		if err := ValidateSlug(s); err != nil {
			t.Errorf("ValidateSlug(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{"", "Audit", "audit_securite", "-leading", "trailing-", "a--b", "with space", "é-accent"}
	for _, s := range invalid {
		err := ValidateSlug(s)
		if err == nil {
			t.Errorf("ValidateSlug(%q) = nil, want error", s)
			continue
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ValidateSlug(%q) error not wrapped in ErrValidation: %v", s, err)
		}
	}
}

func TestPriceValue(t *testing.T) {
	tests := []struct {
		name  string
		price string
		want  float64
	}{
		{"empty is zero", "", 0},
		{"whitespace is zero", "  ", 0},
		{"plain digits", "150", 150},
		{"decimal", "99.50", 99.5},
		{"malformed is zero", "abc", 0},
		{"negative is zero", "-10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Spark{Price: tt.price}
			if got := s.PriceValue(); got != tt.want {
				t.Errorf("PriceValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDemo(t *testing.T) {
	demoID := "demo-consultant"

	unowned := Spark{}
	if !unowned.IsDemo(demoID) {
		t.Error("spark without consultant should be a demo listing")
	}

	demo := Spark{ConsultantID: demoID}
	if !demo.IsDemo(demoID) {
		t.Error("spark owned by the demo consultant should be a demo listing")
	}

	real := Spark{ConsultantID: "c-1"}
	if real.IsDemo(demoID) {
		t.Error("spark owned by a real consultant should not be a demo listing")
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{"valid", CreateRequest{Slug: "audit-securite", Title: "Audit", Duration: 30}, false},
		{"missing slug", CreateRequest{Title: "Audit"}, true},
		{"missing title", CreateRequest{Slug: "audit"}, true},
		{"bad price", CreateRequest{Slug: "audit", Title: "Audit", Price: "free"}, true},
		{"negative price", CreateRequest{Slug: "audit", Title: "Audit", Price: "-1"}, true},
		{"empty price ok", CreateRequest{Slug: "audit", Title: "Audit", Price: ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateRequestValidateNormalizesDuration(t *testing.T) {
	req := CreateRequest{Slug: "audit", Title: "Audit", Duration: 37}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if req.Duration != DefaultDuration {
		t.Errorf("Duration = %d, want %d", req.Duration, DefaultDuration)
	}
}

func TestUpdateRequestValidate(t *testing.T) {
	empty := ""
	bad := "not-a-price"
	dur := 500

	if err := (&UpdateRequest{Title: &empty}).Validate(); err == nil {
		t.Error("empty title update should fail")
	}
	if err := (&UpdateRequest{Price: &bad}).Validate(); err == nil {
		t.Error("malformed price update should fail")
	}

	req := UpdateRequest{Duration: &dur}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if *req.Duration != DefaultDuration {
		t.Errorf("Duration = %d, want %d", *req.Duration, DefaultDuration)
	}
}
