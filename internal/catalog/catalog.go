// Package catalog holds the static view-model data: providers, guideline
// sections, chat rules, the symptom map and the dashboard seed.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type ProviderType string

const (
	ProviderHospital   ProviderType = "hospital"
	ProviderClinic     ProviderType = "clinic"
	ProviderDental     ProviderType = "dental"
	ProviderPharmacy   ProviderType = "pharmacy"
	ProviderEmergency  ProviderType = "emergency"
	ProviderSpecialist ProviderType = "specialist"
)

func (t ProviderType) Valid() bool {
	switch t {
	case ProviderHospital, ProviderClinic, ProviderDental, ProviderPharmacy, ProviderEmergency, ProviderSpecialist:
		return true
	}
	return false
}

type Staff struct {
	Name      string   `yaml:"name" json:"name"`
	Specialty string   `yaml:"specialty" json:"specialty"`
	Languages []string `yaml:"languages" json:"languages"`
}

type Provider struct {
	ID               int          `yaml:"id" json:"id"`
	Name             string       `yaml:"name" json:"name"`
	Type             ProviderType `yaml:"type" json:"type"`
	Rating           float64      `yaml:"rating" json:"rating"`
	Address          string       `yaml:"address" json:"address"`
	Phone            string       `yaml:"phone" json:"phone"`
	Hours            string       `yaml:"hours" json:"hours"`
	Status           string       `yaml:"status" json:"status"`
	Distance         string       `yaml:"distance" json:"distance"`
	Specialties      []string     `yaml:"specialties" json:"specialties"`
	Image            string       `yaml:"image" json:"image"`
	IsPublic         bool         `yaml:"is_public" json:"is_public"`
	AcceptsInsurance []string     `yaml:"accepts_insurance" json:"accepts_insurance"`
	EnglishSpeaking  bool         `yaml:"english_speaking" json:"english_speaking"`
	Description      string       `yaml:"description" json:"description"`
	Services         []string     `yaml:"services" json:"services"`
	Staff            []Staff      `yaml:"staff" json:"staff"`
	Facilities       []string     `yaml:"facilities" json:"facilities"`
	Website          string       `yaml:"website,omitempty" json:"website,omitempty"`
}

// Open reports whether the provider is currently marked open.
func (p Provider) Open() bool { return strings.EqualFold(p.Status, "open") }

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type FilterOptions struct {
	ProviderTypes  []Option `yaml:"provider_types" json:"provider_types"`
	InsuranceTypes []Option `yaml:"insurance_types" json:"insurance_types"`
	Facilities     []Option `yaml:"facilities" json:"facilities"`
	Other          []Option `yaml:"other" json:"other"`
}

type SymptomEntry struct {
	Symptom     string   `yaml:"symptom" json:"symptom"`
	Specialties []string `yaml:"specialties" json:"specialties"`
}

// GuidelineSection is one accordion section; Body is markdown.
type GuidelineSection struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
}

type SearchEntry struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Content   string `yaml:"content" json:"content"`
	Section   string `yaml:"section" json:"section"`
	SectionID string `yaml:"section_id" json:"section_id"`
}

// KeywordMatch matches lowercase text when every All keyword and at least one
// Any keyword occur in it. Empty sets are ignored.
type KeywordMatch struct {
	All []string `yaml:"all,omitempty" json:"all,omitempty"`
	Any []string `yaml:"any,omitempty" json:"any,omitempty"`
}

func (m KeywordMatch) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, k := range m.All {
		if !strings.Contains(text, strings.ToLower(k)) {
			return false
		}
	}
	if len(m.Any) == 0 {
		return len(m.All) > 0
	}
	for _, k := range m.Any {
		if strings.Contains(text, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (m KeywordMatch) empty() bool { return len(m.All) == 0 && len(m.Any) == 0 }

type ChatRule struct {
	KeywordMatch `yaml:",inline"`
	Answer       string `yaml:"answer" json:"answer"`
}

type SuggestionRule struct {
	KeywordMatch `yaml:",inline"`
	Questions    []string `yaml:"questions" json:"questions"`
}

type Chat struct {
	Rules              []ChatRule       `yaml:"rules" json:"rules"`
	DefaultAnswer      string           `yaml:"default_answer" json:"default_answer"`
	SuggestedQuestions []string         `yaml:"suggested_questions" json:"suggested_questions"`
	Suggestions        []SuggestionRule `yaml:"suggestions" json:"suggestions"`
}

type Medication struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Dosage   string `yaml:"dosage" json:"dosage"`
	Taken    bool   `yaml:"taken" json:"taken"`
	Icon     string `yaml:"icon" json:"icon"`
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

type MedicalRecord struct {
	ID       int    `yaml:"id" json:"id"`
	Type     string `yaml:"type" json:"type"`
	Name     string `yaml:"name" json:"name"`
	Date     string `yaml:"date" json:"date"`
	Doctor   string `yaml:"doctor" json:"doctor"`
	Facility string `yaml:"facility" json:"facility"`
}

type Appointment struct {
	ID         int    `yaml:"id" json:"id"`
	Doctor     string `yaml:"doctor" json:"doctor"`
	Specialty  string `yaml:"specialty" json:"specialty"`
	ProviderID int    `yaml:"provider_id,omitempty" json:"provider_id,omitempty"`
	Time       string `yaml:"time" json:"time"`
	DayOffset  int    `yaml:"day_offset" json:"day_offset"`
}

// Catalog is immutable once loaded; readers share one snapshot.
type Catalog struct {
	UserName       string             `yaml:"user_name" json:"user_name"`
	Providers      []Provider         `yaml:"providers" json:"providers"`
	FilterOptions  FilterOptions      `yaml:"filter_options" json:"filter_options"`
	Symptoms       []SymptomEntry     `yaml:"symptoms" json:"symptoms"`
	Guidelines     []GuidelineSection `yaml:"guidelines" json:"guidelines"`
	SearchEntries  []SearchEntry      `yaml:"search_entries" json:"search_entries"`
	Chat           Chat               `yaml:"chat" json:"chat"`
	Medications    []Medication       `yaml:"medications" json:"medications"`
	MedicalHistory []MedicalRecord    `yaml:"medical_history" json:"medical_history"`
	Appointments   []Appointment      `yaml:"appointments" json:"appointments"`
}

var ErrInvalid = errors.New("catalog: invalid")

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// LoadFile reads a catalog file. An empty path yields the embedded default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if c.UserName == "" {
		c.UserName = "Sara"
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var errs []string

	seen := map[int]bool{}
	for i, p := range c.Providers {
		switch {
		case p.ID <= 0:
			errs = append(errs, fmt.Sprintf("providers[%d]: id must be positive", i))
		case seen[p.ID]:
			errs = append(errs, fmt.Sprintf("providers[%d]: duplicate id %d", i, p.ID))
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Sprintf("providers[%d]: name is required", i))
		}
		if !p.Type.Valid() {
			errs = append(errs, fmt.Sprintf("providers[%d]: unknown type %q", i, p.Type))
		}
	}

	for i, s := range c.Symptoms {
		if strings.TrimSpace(s.Symptom) == "" || len(s.Specialties) == 0 {
			errs = append(errs, fmt.Sprintf("symptoms[%d]: symptom and specialties are required", i))
		}
	}

	sections := map[string]bool{}
	for i, g := range c.Guidelines {
		if g.ID == "" || sections[g.ID] {
			errs = append(errs, fmt.Sprintf("guidelines[%d]: missing or duplicate id %q", i, g.ID))
		}
		sections[g.ID] = true
	}
	for i, e := range c.SearchEntries {
		if e.SectionID != "" && !sections[e.SectionID] {
			errs = append(errs, fmt.Sprintf("search_entries[%d]: unknown section %q", i, e.SectionID))
		}
	}

	for i, r := range c.Chat.Rules {
		if r.empty() || strings.TrimSpace(r.Answer) == "" {
			errs = append(errs, fmt.Sprintf("chat.rules[%d]: keywords and answer are required", i))
		}
	}
	for i, r := range c.Chat.Suggestions {
		if r.empty() || len(r.Questions) == 0 {
			errs = append(errs, fmt.Sprintf("chat.suggestions[%d]: keywords and questions are required", i))
		}
	}
	if strings.TrimSpace(c.Chat.DefaultAnswer) == "" {
		errs = append(errs, "chat.default_answer is required")
	}

	meds := map[int]bool{}
	for i, m := range c.Medications {
		if m.ID <= 0 || meds[m.ID] {
			errs = append(errs, fmt.Sprintf("medications[%d]: missing or duplicate id", i))
		}
		meds[m.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// Provider returns the provider with the given id.
func (c *Catalog) Provider(id int) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Section returns the guideline section with the given id.
func (c *Catalog) Section(id string) (GuidelineSection, bool) {
	for _, g := range c.Guidelines {
		if g.ID == id {
			return g, true
		}
	}
	return GuidelineSection{}, false
}
