// Package spark defines the Spark offering domain model for the catalog.
package spark

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sparkier-io/sparkier/internal/domain"
)

// AllowedDurations is the fixed set of session lengths, in minutes.
var AllowedDurations = map[int]bool{
	15:  true,
	30:  true,
	45:  true,
	60:  true,
	90:  true,
	120: true,
}

// DefaultDuration is used when a parsed duration is not in AllowedDurations.
const DefaultDuration = 60

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Spark is a bookable offering published by a consultant.
type Spark struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`    // decimal string; empty means free
	Duration     int       `json:"duration"` // minutes, one of AllowedDurations
	ConsultantID string    `json:"consultant_id,omitempty"` // empty = platform demo listing
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsDemo reports whether the spark is a platform-owned marketing sample,
// given the configured demo consultant id.
func (s *Spark) IsDemo(demoConsultantID string) bool {
	return s.ConsultantID == "" || (demoConsultantID != "" && s.ConsultantID == demoConsultantID)
}

// PriceValue parses the price into a numeric amount. Empty or malformed
// prices are treated as zero.
func (s *Spark) PriceValue() float64 {
	p := strings.TrimSpace(s.Price)
	if p == "" {
		return 0
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// NormalizeDuration collapses any value outside AllowedDurations to DefaultDuration.
func NormalizeDuration(minutes int) int {
	if AllowedDurations[minutes] {
		return minutes
	}
	return DefaultDuration
}

// ValidateSlug checks that a slug is non-empty, lowercase, and URL-safe.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", domain.ErrValidation)
	}
	if len(slug) > 128 {
		return fmt.Errorf("%w: slug too long (max 128 chars)", domain.ErrValidation)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug must contain only lowercase letters, digits, and hyphens", domain.ErrValidation)
	}
	return nil
}

// CreateRequest is the input for publishing a new spark.
type CreateRequest struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Duration     int    `json:"duration"`
	ConsultantID string `json:"consultant_id"`
}

// Validate checks the CreateRequest and normalizes its duration and price.
func (r *CreateRequest) Validate() error {
	if err := ValidateSlug(r.Slug); err != nil {
		return err
	}
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(r.Title) > 256 {
		return fmt.Errorf("%w: title too long (max 256 chars)", domain.ErrValidation)
	}
	if p := strings.TrimSpace(r.Price); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: price must be a non-negative decimal", domain.ErrValidation)
		}
	}
	r.Duration = NormalizeDuration(r.Duration)
	return nil
}

// UpdateRequest is the input for partial updates to a spark. Nil fields are
// left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
}

// Validate checks the UpdateRequest fields that are present.
func (r *UpdateRequest) Validate() error {
	if r.Title != nil {
		if *r.Title == "" {
			return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		if len(*r.Title) > 256 {
			return fmt.Errorf("%w: title too long (max 256 chars)", domain.ErrValidation)
		}
	}
	if r.Price != nil {
		if p := strings.TrimSpace(*r.Price); p != "" {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil || v < 0 {
				return fmt.Errorf("%w: price must be a non-negative decimal", domain.ErrValidation)
			}
		}
	}
	if r.Duration != nil {
		normalized := NormalizeDuration(*r.Duration)
		r.Duration = &normalized
	}
	return nil
}
