package importer

import (
	"encoding/json"
	"testing"
)

func TestDatePartsFormat(t *testing.T) {
	cases := []struct {
		name string
		in   *DateParts
		want string
	}{
		{"nil", nil, ""},
		{"no year", &DateParts{Month: 5, Day: 2}, ""},
		{"full", &DateParts{Year: 2021, Month: 5, Day: 2}, "2021-05-02"},
		{"year only", &DateParts{Year: 2021}, "2021-01-01"},
		{"year and month", &DateParts{Year: 2021, Month: 11}, "2021-11-01"},
	}
	for _, tc := range cases {
		if got := tc.in.Format(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestToResumeDataMapping(t *testing.T) {
	p := &Profile{
		FullName:         "Ada Lovelace",
		PersonalEmails:   []string{"ada@example.com", "backup@example.com"},
		PersonalNumbers:  []string{"+44 123"},
		City:             "London",
		CountryFullName:  "United Kingdom",
		PublicIdentifier: "ada-lovelace",
		Headline:         "Mathematician",
		Skills:           []string{"analysis", "", "programming"},
		Experiences: []ProfileExperience{
			{
				Company:  "Analytical Engines Ltd",
				Title:    "Engineer",
				StartsAt: &DateParts{Year: 1840, Month: 3},
				EndsAt:   &DateParts{Year: 1843},
			},
			{
				Company:  "Independent",
				Title:    "Researcher",
				StartsAt: &DateParts{Year: 1843},
			},
		},
		Education: []ProfileEducation{
			{School: "Home Tutoring", DegreeName: "Mathematics", EndsAt: &DateParts{Year: 1835}},
		},
	}
	p.Extra.GithubProfileID = "ada"

	data := ToResumeData(p, nil)

	if data.PersonalInfo.Name != "Ada Lovelace" {
		t.Fatalf("unexpected name %q", data.PersonalInfo.Name)
	}
	if data.PersonalInfo.Email != "ada@example.com" {
		t.Fatalf("expected first email, got %q", data.PersonalInfo.Email)
	}
	if data.PersonalInfo.Location != "London, United Kingdom" {
		t.Fatalf("unexpected location %q", data.PersonalInfo.Location)
	}
	if data.PersonalInfo.LinkedIn != "https://www.linkedin.com/in/ada-lovelace" {
		t.Fatalf("unexpected linkedin %q", data.PersonalInfo.LinkedIn)
	}
	if data.PersonalInfo.GitHub != "https://github.com/ada" {
		t.Fatalf("unexpected github %q", data.PersonalInfo.GitHub)
	}
	if data.Summary != "Mathematician" {
		t.Fatalf("expected headline as summary fallback, got %q", data.Summary)
	}
	if len(data.Skills) != 2 {
		t.Fatalf("expected empty skills dropped, got %v", data.Skills)
	}

	if len(data.Experience) != 2 {
		t.Fatalf("expected 2 experiences, got %d", len(data.Experience))
	}
	finished, current := data.Experience[0], data.Experience[1]
	if finished.StartDate != "1840-03-01" || finished.EndDate != "1843-01-01" || finished.Current {
		t.Fatalf("unexpected finished experience: %+v", finished)
	}
	if !current.Current || current.EndDate != "" {
		t.Fatalf("open-ended experience not marked current: %+v", current)
	}

	if len(data.Education) != 1 || data.Education[0].Institution != "Home Tutoring" {
		t.Fatalf("unexpected education: %+v", data.Education)
	}
	if len(data.SectionOrder) == 0 || data.SectionOrder[0] != "personalInfo" {
		t.Fatalf("unexpected section order: %v", data.SectionOrder)
	}
}

func TestToResumeDataNameFallback(t *testing.T) {
	p := &Profile{FirstName: "Ada", LastName: "Lovelace"}
	data := ToResumeData(p, nil)
	if data.PersonalInfo.Name != "Ada Lovelace" {
		t.Fatalf("unexpected assembled name %q", data.PersonalInfo.Name)
	}
}

func TestBuildCustomSectionsFixed(t *testing.T) {
	p := &Profile{
		Certifications: []ProfileCert{
			{Name: "AWS Certified", StartsAt: &DateParts{Year: 2020, Month: 6}},
			{Authority: "Coursera"},
		},
		AccomplishmentCourses: []ProfileCourse{{Name: "Databases"}},
	}

	sections := buildCustomSections(p, nil)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	certs := sections[0]
	if certs.Title != "Certifications" || len(certs.Content.Items) != 2 {
		t.Fatalf("unexpected certifications section: %+v", certs)
	}
	if certs.Content.Items[0].Date != "2020-06-01" {
		t.Fatalf("unexpected cert date %q", certs.Content.Items[0].Date)
	}
	// Name falls back to the issuing authority.
	if certs.Content.Items[1].Name != "Coursera" {
		t.Fatalf("unexpected cert name %q", certs.Content.Items[1].Name)
	}
}

func TestBuildCustomSectionsPromotesUnknownArrays(t *testing.T) {
	raw := map[string]json.RawMessage{
		"volunteer_work": json.RawMessage(`[{"name":"Food bank","description":"weekends"}]`),
		"patents":        json.RawMessage(`["US-123","US-456"]`),
		"languages":      json.RawMessage(`["English"]`),   // known field, skipped
		"follower_count": json.RawMessage(`1234`),          // not an array, skipped
		"empty_list":     json.RawMessage(`[]`),            // nothing to promote
		"junk":           json.RawMessage(`[{"other":1}]`), // no usable items
	}

	sections := buildCustomSections(&Profile{}, raw)
	if len(sections) != 2 {
		t.Fatalf("expected 2 promoted sections, got %d: %+v", len(sections), sections)
	}

	byID := map[string]CustomSection{}
	for _, s := range sections {
		byID[s.ID] = s
	}

	volunteer, ok := byID["custom-volunteer_work"]
	if !ok {
		t.Fatalf("volunteer_work not promoted: %+v", sections)
	}
	if volunteer.Title != "Volunteer Work" {
		t.Fatalf("unexpected title %q", volunteer.Title)
	}
	if len(volunteer.Content.Items) != 1 || volunteer.Content.Items[0].Description != "weekends" {
		t.Fatalf("unexpected items: %+v", volunteer.Content.Items)
	}

	patents, ok := byID["custom-patents"]
	if !ok || len(patents.Content.Items) != 2 || patents.Content.Items[0].Name != "US-123" {
		t.Fatalf("unexpected patents section: %+v", patents)
	}
}
