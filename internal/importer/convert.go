package importer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DateParts is the provider's split date representation.
type DateParts struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Format renders YYYY-MM-DD, defaulting month and day to 1. An absent or
// year-less date renders "".
func (d *DateParts) Format() string {
	if d == nil || d.Year == 0 {
		return ""
	}
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, month, day)
}

// Profile is the typed view of the provider payload.
type Profile struct {
	FullName        string   `json:"full_name"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	PersonalEmails  []string `json:"personal_emails"`
	PersonalNumbers []string `json:"personal_numbers"`

	City             string `json:"city"`
	State            string `json:"state"`
	CountryFullName  string `json:"country_full_name"`
	PublicIdentifier string `json:"public_identifier"`
	Summary          string `json:"summary"`
	Headline         string `json:"headline"`

	Experiences []ProfileExperience `json:"experiences"`
	Education   []ProfileEducation  `json:"education"`
	Skills      []string            `json:"skills"`

	AccomplishmentProjects     []ProfileProject `json:"accomplishment_projects"`
	Certifications             []ProfileCert    `json:"certifications"`
	AccomplishmentCourses      []ProfileCourse  `json:"accomplishment_courses"`
	AccomplishmentHonorsAwards []ProfileHonor   `json:"accomplishment_honors_awards"`

	Extra struct {
		GithubProfileID string `json:"github_profile_id"`
	} `json:"extra"`
}

type ProfileExperience struct {
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	StartsAt    *DateParts `json:"starts_at"`
	EndsAt      *DateParts `json:"ends_at"`
}

type ProfileEducation struct {
	School                 string     `json:"school"`
	DegreeName             string     `json:"degree_name"`
	FieldOfStudy           string     `json:"field_of_study"`
	Grade                  string     `json:"grade"`
	ActivitiesAndSocieties string     `json:"activities_and_societies"`
	Description            string     `json:"description"`
	StartsAt               *DateParts `json:"starts_at"`
	EndsAt                 *DateParts `json:"ends_at"`
}

type ProfileProject struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	StartsAt    *DateParts `json:"starts_at"`
	EndsAt      *DateParts `json:"ends_at"`
}

type ProfileCert struct {
	Name      string     `json:"name"`
	Authority string     `json:"authority"`
	StartsAt  *DateParts `json:"starts_at"`
}

type ProfileCourse struct {
	Name string `json:"name"`
}

type ProfileHonor struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IssuedOn    *DateParts `json:"issued_on"`
}

// Platform resume document shape, as stored in Resume.Data.

type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
}

type ExperienceItem struct {
	ID           string   `json:"id"`
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Current      bool     `json:"current"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

type EducationItem struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
	GPA         string `json:"gpa"`
	Description string `json:"description"`
}

type ProjectItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	URL          string   `json:"url"`
	Technologies []string `json:"technologies"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
}

type CustomSectionItem struct {
	Name        string `json:"name"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type CustomSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content struct {
		Items []CustomSectionItem `json:"items"`
	} `json:"content"`
}

type Layout struct {
	Margins struct {
		Top    int `json:"top"`
		Bottom int `json:"bottom"`
		Left   int `json:"left"`
		Right  int `json:"right"`
	} `json:"margins"`
	Spacing float64 `json:"spacing"`
	Scale   float64 `json:"scale"`
}

type ResumeData struct {
	PersonalInfo   PersonalInfo     `json:"personalInfo"`
	Summary        string           `json:"summary"`
	Experience     []ExperienceItem `json:"experience"`
	Education      []EducationItem  `json:"education"`
	Skills         []string         `json:"skills"`
	Projects       []ProjectItem    `json:"projects"`
	CustomSections []CustomSection  `json:"customSections"`
	SectionOrder   []string         `json:"sectionOrder"`
	Layout         Layout           `json:"layout"`
	Tags           []string         `json:"tags"`
}

// knownFields are provider keys the typed mapping already consumes; any
// other array-valued key is promoted to a custom section.
var knownFields = map[string]struct{}{
	"full_name": {}, "first_name": {}, "last_name": {}, "personal_emails": {},
	"personal_numbers": {}, "city": {}, "state": {}, "country_full_name": {},
	"public_identifier": {}, "extra": {}, "summary": {}, "headline": {},
	"experiences": {}, "education": {}, "skills": {},
	"accomplishment_projects": {}, "certifications": {},
	"accomplishment_courses": {}, "accomplishment_honors_awards": {},
	"languages": {}, "inferred_salary": {}, "gender": {}, "birth_date": {},
	"industry": {}, "profile_pic_url": {}, "background_cover_image_url": {},
	"occupation": {}, "follower_count": {}, "interests": {}, "connections": {},
	"articles": {}, "groups": {}, "activities": {}, "recommendations": {},
	"similarly_named_profiles": {},
}

// ToResumeData maps a fetched profile into the platform resume document.
// raw is the undecoded payload, used to carry provider fields the typed view
// does not model into custom sections.
func ToResumeData(p *Profile, raw map[string]json.RawMessage) ResumeData {
	data := ResumeData{
		PersonalInfo: PersonalInfo{
			Name:     fullName(p),
			Email:    first(p.PersonalEmails),
			Phone:    first(p.PersonalNumbers),
			Location: joinNonEmpty(", ", p.City, p.State, p.CountryFullName),
		},
		Summary:      firstNonEmpty(p.Summary, p.Headline),
		Skills:       compact(p.Skills),
		SectionOrder: []string{"personalInfo", "summary", "experience", "education", "skills", "projects", "customSections"},
		Tags:         []string{},
	}
	if p.PublicIdentifier != "" {
		data.PersonalInfo.LinkedIn = "https://www.linkedin.com/in/" + p.PublicIdentifier
	}
	if p.Extra.GithubProfileID != "" {
		data.PersonalInfo.GitHub = "https://github.com/" + p.Extra.GithubProfileID
	}

	data.Layout.Margins.Top = 20
	data.Layout.Margins.Bottom = 20
	data.Layout.Margins.Left = 20
	data.Layout.Margins.Right = 20
	data.Layout.Spacing = 1.2
	data.Layout.Scale = 1

	for i, e := range p.Experiences {
		data.Experience = append(data.Experience, ExperienceItem{
			ID:           fmt.Sprintf("exp-%d", i+1),
			Company:      e.Company,
			Position:     e.Title,
			Location:     e.Location,
			StartDate:    e.StartsAt.Format(),
			EndDate:      e.EndsAt.Format(),
			Current:      e.EndsAt == nil,
			Description:  e.Description,
			Achievements: []string{},
		})
	}

	for i, e := range p.Education {
		data.Education = append(data.Education, EducationItem{
			ID:          fmt.Sprintf("edu-%d", i+1),
			Institution: e.School,
			Degree:      e.DegreeName,
			Field:       e.FieldOfStudy,
			StartDate:   e.StartsAt.Format(),
			EndDate:     e.EndsAt.Format(),
			Current:     e.EndsAt == nil,
			GPA:         e.Grade,
			Description: joinNonEmpty("\n", e.ActivitiesAndSocieties, e.Description),
		})
	}

	for i, proj := range p.AccomplishmentProjects {
		data.Projects = append(data.Projects, ProjectItem{
			ID:           fmt.Sprintf("proj-%d", i+1),
			Name:         proj.Title,
			Description:  proj.Description,
			URL:          proj.URL,
			Technologies: []string{},
			StartDate:    proj.StartsAt.Format(),
			EndDate:      proj.EndsAt.Format(),
		})
	}

	data.CustomSections = buildCustomSections(p, raw)

	return data
}

func buildCustomSections(p *Profile, raw map[string]json.RawMessage) []CustomSection {
	var sections []CustomSection

	if len(p.Certifications) > 0 {
		s := CustomSection{ID: "custom-certifications", Title: "Certifications"}
		for _, c := range p.Certifications {
			s.Content.Items = append(s.Content.Items, CustomSectionItem{
				Name: firstNonEmpty(c.Name, c.Authority),
				Date: c.StartsAt.Format(),
			})
		}
		sections = append(sections, s)
	}

	if len(p.AccomplishmentHonorsAwards) > 0 {
		s := CustomSection{ID: "custom-accomplishment_honors_awards", Title: "Honors & Awards"}
		for _, h := range p.AccomplishmentHonorsAwards {
			s.Content.Items = append(s.Content.Items, CustomSectionItem{
				Name:        h.Title,
				Date:        h.IssuedOn.Format(),
				Description: h.Description,
			})
		}
		sections = append(sections, s)
	}

	if len(p.AccomplishmentCourses) > 0 {
		s := CustomSection{ID: "custom-accomplishment_courses", Title: "Courses"}
		for _, c := range p.AccomplishmentCourses {
			s.Content.Items = append(s.Content.Items, CustomSectionItem{Name: c.Name})
		}
		sections = append(sections, s)
	}

	// Promote unknown array-valued provider fields so no data is dropped.
	for key, value := range raw {
		if _, known := knownFields[key]; known {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil || len(items) == 0 {
			continue
		}

		s := CustomSection{ID: "custom-" + key, Title: titleize(key)}
		for _, item := range items {
			var str string
			if err := json.Unmarshal(item, &str); err == nil {
				s.Content.Items = append(s.Content.Items, CustomSectionItem{Name: str})
				continue
			}
			var obj CustomSectionItem
			if err := json.Unmarshal(item, &obj); err == nil && obj.Name != "" {
				s.Content.Items = append(s.Content.Items, obj)
			}
		}
		if len(s.Content.Items) > 0 {
			sections = append(sections, s)
		}
	}

	return sections
}

func fullName(p *Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// titleize turns a snake_case provider key into a section title.
func titleize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func joinNonEmpty(sep string, ss ...string) string {
	var parts []string
	for _, s := range ss {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func compact(ss []string) []string {
	out := []string{}
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
