package filter

import (
	"fmt"
	"strings"
	"time"
)

// Input limits, matching the remote service's documented constraints.
const (
	MinYear            = 1900
	MaxYear            = 2100
	MaxAlbumNameLength = 500
)

// ValidationError reports a rejected input with a user-actionable message.
// It is always detected before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateYear checks that year falls within the supported range.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return invalid("year", "must be between %d and %d", MinYear, MaxYear)
	}
	return nil
}

// ParseDate validates a YYYY-MM-DD string. An empty string is valid and
// returns the zero Date, since every date bound is optional.
func ParseDate(field, s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, invalid(field, "must be in YYYY-MM-DD format")
	}
	if t.Year() < MinYear || t.Year() > MaxYear {
		return Date{}, invalid(field, "year must be between %d and %d", MinYear, MaxYear)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

// ValidateMediaType checks a media type string. Empty defaults to ALL.
func ValidateMediaType(s string) (string, error) {
	if s == "" {
		return MediaTypeAll, nil
	}
	upper := strings.ToUpper(s)
	switch upper {
	case MediaTypeAll, MediaTypePhoto, MediaTypeVideo:
		return upper, nil
	}
	return "", invalid("media_type", "must be one of: %s, %s, %s", MediaTypeAll, MediaTypePhoto, MediaTypeVideo)
}

// ValidateCategories normalizes categories to upper case, removes duplicates,
// and rejects any value outside the known set.
func ValidateCategories(categories []string) ([]string, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
	}

	seen := make(map[string]bool, len(categories))
	var out []string
	var unknown []string
	for _, c := range categories {
		upper := strings.ToUpper(strings.TrimSpace(c))
		if upper == "" || seen[upper] {
			continue
		}
		seen[upper] = true
		if !known[upper] {
			unknown = append(unknown, upper)
			continue
		}
		out = append(out, upper)
	}

	if len(unknown) > 0 {
		return nil, invalid("categories", "unknown categories: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// ValidateAlbumName checks an album title for length and control characters.
func ValidateAlbumName(name string) error {
	if name == "" {
		return invalid("album_name", "is required")
	}
	if len(name) > MaxAlbumNameLength {
		return invalid("album_name", "must be %d characters or less", MaxAlbumNameLength)
	}
	for _, r := range name {
		if r < 32 {
			return invalid("album_name", "contains invalid characters")
		}
	}
	return nil
}

// Validate checks the assembled filter for internal consistency.
func (f Filter) Validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.StartDate.After(f.EndDate) {
		return invalid("start_date", "must not be after end_date")
	}
	if f.StartDate.IsZero() && f.EndDate.IsZero() && f.Year != 0 {
		if err := ValidateYear(f.Year); err != nil {
			return err
		}
	}
	return nil
}
