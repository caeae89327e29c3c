package filter

import (
	"strings"
	"testing"
	"time"
)

func TestCompile_Empty(t *testing.T) {
	f := Filter{}
	if got := f.Compile(); got != nil {
		t.Fatalf("Compile() = %+v, want nil", got)
	}
}

func TestCompile_MediaTypeAllIsNoClause(t *testing.T) {
	f := Filter{MediaType: MediaTypeAll}
	if got := f.Compile(); got != nil {
		t.Fatalf("Compile() = %+v, want nil", got)
	}
}

func TestCompile_YearExpandsToFullRange(t *testing.T) {
	f := Filter{Year: 2023}
	got := f.Compile()
	if got == nil || got.DateFilter == nil {
		t.Fatal("Compile() missing date filter")
	}
	ranges := got.DateFilter.Ranges
	if len(ranges) != 1 {
		t.Fatalf("len(ranges) = %d, want 1", len(ranges))
	}
	want := DateRange{
		StartDate: &Date{Year: 2023, Month: 1, Day: 1},
		EndDate:   &Date{Year: 2023, Month: 12, Day: 31},
	}
	if *ranges[0].StartDate != *want.StartDate || *ranges[0].EndDate != *want.EndDate {
		t.Errorf("range = %+v..%+v, want %+v..%+v",
			ranges[0].StartDate, ranges[0].EndDate, want.StartDate, want.EndDate)
	}
}

func TestCompile_DateRangeWinsOverYear(t *testing.T) {
	f := Filter{
		StartDate: Date{Year: 2024, Month: 6, Day: 1},
		Year:      1999,
	}
	got := f.Compile()
	if got == nil || got.DateFilter == nil {
		t.Fatal("Compile() missing date filter")
	}
	r := got.DateFilter.Ranges[0]
	if r.StartDate == nil || r.StartDate.Year != 2024 {
		t.Errorf("start = %+v, want year 2024", r.StartDate)
	}
	if r.EndDate != nil {
		t.Errorf("end = %+v, want open", r.EndDate)
	}
}

func TestCompile_OpenEndedRange(t *testing.T) {
	f := Filter{EndDate: Date{Year: 2022, Month: 3, Day: 15}}
	got := f.Compile()
	r := got.DateFilter.Ranges[0]
	if r.StartDate != nil {
		t.Errorf("start = %+v, want open", r.StartDate)
	}
	if r.EndDate == nil || *r.EndDate != f.EndDate {
		t.Errorf("end = %+v, want %+v", r.EndDate, f.EndDate)
	}
}

func TestCompile_AllClauses(t *testing.T) {
	f := Filter{
		Year:          2021,
		MediaType:     MediaTypePhoto,
		Categories:    []string{"PETS", "TRAVEL"},
		FavoritesOnly: true,
	}
	got := f.Compile()
	if got == nil {
		t.Fatal("Compile() = nil")
	}
	if got.DateFilter == nil {
		t.Error("missing date filter")
	}
	if got.MediaTypeFilter == nil || got.MediaTypeFilter.MediaTypes[0] != MediaTypePhoto {
		t.Errorf("media type filter = %+v", got.MediaTypeFilter)
	}
	if got.ContentFilter == nil || len(got.ContentFilter.IncludedContentCategories) != 2 {
		t.Errorf("content filter = %+v", got.ContentFilter)
	}
	if got.FeatureFilter == nil || got.FeatureFilter.IncludedFeatures[0] != "FAVORITES" {
		t.Errorf("feature filter = %+v", got.FeatureFilter)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"empty", Filter{}, "all photos"},
		{"media type all only", Filter{MediaType: MediaTypeAll}, "all photos"},
		{"year", Filter{Year: 2023}, "from 2023"},
		{
			"full range",
			Filter{
				StartDate: Date{Year: 2023, Month: 1, Day: 2},
				EndDate:   Date{Year: 2023, Month: 4, Day: 5},
			},
			"from 2023-01-02 to 2023-04-05",
		},
		{
			"start only",
			Filter{StartDate: Date{Year: 2023, Month: 1, Day: 2}},
			"from 2023-01-02 onwards",
		},
		{
			"end only",
			Filter{EndDate: Date{Year: 2023, Month: 4, Day: 5}},
			"up to 2023-04-05",
		},
		{
			"range overrides year in description",
			Filter{StartDate: Date{Year: 2023, Month: 1, Day: 2}, Year: 1990},
			"from 2023-01-02 onwards",
		},
		{
			"everything",
			Filter{
				Year:          2020,
				MediaType:     MediaTypeVideo,
				Categories:    []string{"PETS", "FOOD"},
				FavoritesOnly: true,
			},
			"from 2020; type: videos; categories: PETS, FOOD; favorites only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateAfter(t *testing.T) {
	a := Date{Year: 2023, Month: 5, Day: 10}
	b := Date{Year: 2023, Month: 5, Day: 9}
	if !a.After(b) {
		t.Error("a.After(b) = false, want true")
	}
	if b.After(a) {
		t.Error("b.After(a) = true, want false")
	}
	if a.After(a) {
		t.Error("a.After(a) = true, want false")
	}
}

func TestAvailableYears(t *testing.T) {
	years := AvailableYears()
	if len(years) == 0 {
		t.Fatal("no years returned")
	}
	if years[0] != time.Now().Year() {
		t.Errorf("first year = %d, want current year", years[0])
	}
	if years[len(years)-1] != 2000 {
		t.Errorf("last year = %d, want 2000", years[len(years)-1])
	}
	for i := 1; i < len(years); i++ {
		if years[i] != years[i-1]-1 {
			t.Fatalf("years not descending at index %d: %v", i, years[i-1:i+1])
		}
	}
}

func TestCategoriesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Categories {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
		if c != strings.ToUpper(c) {
			t.Errorf("category %q is not upper case", c)
		}
	}
}
