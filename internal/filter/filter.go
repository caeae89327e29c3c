// Package filter models the declarative search filter and compiles it to the
// remote API's query representation. Compilation is pure; validation of raw
// inputs happens separately before a Filter is constructed.
package filter

import (
	"strconv"
	"strings"
	"time"
)

// Media type values accepted by the remote search API.
const (
	MediaTypeAll   = "ALL"
	MediaTypePhoto = "PHOTO"
	MediaTypeVideo = "VIDEO"
)

// Categories recognized by the remote content filter.
var Categories = []string{
	"NONE", "LANDSCAPES", "RECEIPTS", "CITYSCAPES", "LANDMARKS",
	"SELFIES", "PEOPLE", "PETS", "WEDDINGS", "BIRTHDAYS",
	"DOCUMENTS", "TRAVEL", "ANIMALS", "FOOD", "SPORT",
	"NIGHT", "PERFORMANCES", "WHITEBOARDS", "SCREENSHOTS", "UTILITY",
}

// Date is a calendar date as the remote API represents it.
type Date struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}

// Filter describes which media items a search should return. The zero value
// matches everything. A set date range takes precedence over Year.
type Filter struct {
	StartDate     Date
	EndDate       Date
	Year          int
	MediaType     string
	Categories    []string
	FavoritesOnly bool
}

// SearchFilters is the remote search API's filter body.
type SearchFilters struct {
	DateFilter      *DateFilter      `json:"dateFilter,omitempty"`
	MediaTypeFilter *MediaTypeFilter `json:"mediaTypeFilter,omitempty"`
	ContentFilter   *ContentFilter   `json:"contentFilter,omitempty"`
	FeatureFilter   *FeatureFilter   `json:"featureFilter,omitempty"`
}

// DateFilter restricts results to one or more date ranges.
type DateFilter struct {
	Ranges []DateRange `json:"ranges"`
}

// DateRange bounds a date filter; either side may be open.
type DateRange struct {
	StartDate *Date `json:"startDate,omitempty"`
	EndDate   *Date `json:"endDate,omitempty"`
}

// MediaTypeFilter restricts results to photos or videos.
type MediaTypeFilter struct {
	MediaTypes []string `json:"mediaTypes"`
}

// ContentFilter restricts results to machine-assigned content categories.
type ContentFilter struct {
	IncludedContentCategories []string `json:"includedContentCategories"`
}

// FeatureFilter restricts results to items with a feature such as FAVORITES.
type FeatureFilter struct {
	IncludedFeatures []string `json:"includedFeatures"`
}

// Compile translates the filter into the remote query body. Returns nil when
// no clause is active, which the search request omits entirely.
func (f Filter) Compile() *SearchFilters {
	var out SearchFilters
	active := false

	switch {
	case !f.StartDate.IsZero() || !f.EndDate.IsZero():
		r := DateRange{}
		if !f.StartDate.IsZero() {
			start := f.StartDate
			r.StartDate = &start
		}
		if !f.EndDate.IsZero() {
			end := f.EndDate
			r.EndDate = &end
		}
		out.DateFilter = &DateFilter{Ranges: []DateRange{r}}
		active = true
	case f.Year != 0:
		out.DateFilter = &DateFilter{Ranges: []DateRange{{
			StartDate: &Date{Year: f.Year, Month: 1, Day: 1},
			EndDate:   &Date{Year: f.Year, Month: 12, Day: 31},
		}}}
		active = true
	}

	if f.MediaType != "" && f.MediaType != MediaTypeAll {
		out.MediaTypeFilter = &MediaTypeFilter{MediaTypes: []string{f.MediaType}}
		active = true
	}

	if len(f.Categories) > 0 {
		out.ContentFilter = &ContentFilter{IncludedContentCategories: f.Categories}
		active = true
	}

	if f.FavoritesOnly {
		out.FeatureFilter = &FeatureFilter{IncludedFeatures: []string{"FAVORITES"}}
		active = true
	}

	if !active {
		return nil
	}
	return &out
}

// Describe returns a human-readable summary of the active clauses, in the
// fixed order date, media type, categories, favorites.
func (f Filter) Describe() string {
	var parts []string

	switch {
	case !f.StartDate.IsZero() && !f.EndDate.IsZero():
		parts = append(parts, "from "+f.StartDate.String()+" to "+f.EndDate.String())
	case !f.StartDate.IsZero():
		parts = append(parts, "from "+f.StartDate.String()+" onwards")
	case !f.EndDate.IsZero():
		parts = append(parts, "up to "+f.EndDate.String())
	case f.Year != 0:
		parts = append(parts, "from "+strconv.Itoa(f.Year))
	}

	if f.MediaType != "" && f.MediaType != MediaTypeAll {
		parts = append(parts, "type: "+strings.ToLower(f.MediaType)+"s")
	}

	if len(f.Categories) > 0 {
		parts = append(parts, "categories: "+strings.Join(f.Categories, ", "))
	}

	if f.FavoritesOnly {
		parts = append(parts, "favorites only")
	}

	if len(parts) == 0 {
		return "all photos"
	}
	return strings.Join(parts, "; ")
}

// AvailableYears lists the selectable filter years, current year down to 2000.
func AvailableYears() []int {
	current := time.Now().Year()
	years := make([]int, 0, current-1999)
	for y := current; y >= 2000; y-- {
		years = append(years, y)
	}
	return years
}
