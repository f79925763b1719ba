// Package siteconfig holds the read-only content of the conference site:
// event copy, leadership, committees, schedule, venue, registration forms
// and the reveal instant of every gated section.
package siteconfig

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/igacmun/site/go/internal/reveal"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultDocument []byte

// Section names a gated content section.
type Section string

const (
	SectionCommittees   Section = "committees"
	SectionSchedule     Section = "schedule"
	SectionVenue        Section = "venue"
	SectionSecretariats Section = "secretariats"
)

// Sections lists every gated section in display order.
func Sections() []Section {
	return []Section{SectionCommittees, SectionSchedule, SectionVenue, SectionSecretariats}
}

// ParseSection resolves a section name.
func ParseSection(name string) (Section, error) {
	for _, s := range Sections() {
		if string(s) == strings.ToLower(strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrInvalidConfig  = errors.New("invalid site config")
)

type Event struct {
	Title             string `yaml:"title"             json:"title"`
	Subtitle          string `yaml:"subtitle"          json:"subtitle,omitempty"`
	Tagline           string `yaml:"tagline"           json:"tagline"`
	Dates             string `yaml:"dates"             json:"dates"`
	ExpectedDelegates string `yaml:"expectedDelegates" json:"expected_delegates"`
	Description       string `yaml:"description"       json:"description"`
}

type Leader struct {
	Name        string `yaml:"name"        json:"name"`
	Role        string `yaml:"role"        json:"role"`
	Photo       string `yaml:"photo"       json:"photo"`
	Description string `yaml:"description" json:"description"`
}

// Reveal configures one gated section. EnableCountdown is consulted by the
// pages, not by the reveal clock: a section with the countdown disabled
// always shows its content.
type Reveal struct {
	Mode                 string `yaml:"mode"                 json:"mode"`
	RevealAt             string `yaml:"revealAt"             json:"reveal_at"`
	ShowCountdownOverlay bool   `yaml:"showCountdownOverlay" json:"show_countdown_overlay"`
	EnableCountdown      bool   `yaml:"enableCountdown"      json:"enable_countdown"`
	IsSecret             bool   `yaml:"isSecret"             json:"is_secret"`
}

type Reveals struct {
	Committees   Reveal `yaml:"committees"`
	Schedule     Reveal `yaml:"schedule"`
	Venue        Reveal `yaml:"venue"`
	Secretariats Reveal `yaml:"secretariats"`
}

type RegistrationType struct {
	Key  string `yaml:"key"  json:"key"`
	Icon string `yaml:"icon" json:"icon"`
}

type Form struct {
	Enabled     bool   `yaml:"enabled"     json:"enabled"`
	Link        string `yaml:"link"        json:"link"`
	Title       string `yaml:"title"       json:"title"`
	Description string `yaml:"description" json:"description"`
	Deadline    string `yaml:"deadline"    json:"deadline"`
}

type Social struct {
	Instagram string `yaml:"instagram" json:"instagram"`
	Facebook  string `yaml:"facebook"  json:"facebook"`
	Email     string `yaml:"email"     json:"email"`
	Phone     string `yaml:"phone"     json:"phone"`
}

type Committee struct {
	Name        string `yaml:"name"        json:"name"`
	SigilImage  string `yaml:"sigilImage"  json:"sigil_image"`
	Difficulty  string `yaml:"difficulty"  json:"difficulty"`
	Description string `yaml:"description" json:"description"`
}

type Venue struct {
	Name      string `yaml:"name"      json:"name"`
	FullName  string `yaml:"fullName"  json:"full_name"`
	HeroImage string `yaml:"heroImage" json:"hero_image"`
	Address   string `yaml:"address"   json:"address"`
	Hidden    bool   `yaml:"hidden"    json:"hidden"`
}

type Session struct {
	Time  string `yaml:"time"  json:"time"`
	Title string `yaml:"title" json:"title"`
	Type  string `yaml:"type"  json:"type"`
}

type ScheduleDay struct {
	Title    string    `yaml:"title"    json:"title"`
	Date     string    `yaml:"date"     json:"date"`
	Sessions []Session `yaml:"sessions" json:"sessions"`
}

// Config is the whole site document.
type Config struct {
	Event             Event              `yaml:"event"`
	Leadership        []Leader           `yaml:"leadership"`
	Reveals           Reveals            `yaml:"reveals"`
	RegistrationTypes []RegistrationType `yaml:"registrationTypes"`
	Forms             map[string]Form    `yaml:"forms"`
	Social            Social             `yaml:"social"`
	Committees        []Committee        `yaml:"committees"`
	Venue             Venue              `yaml:"venue"`
	Schedule          []ScheduleDay      `yaml:"schedule"`
}

var sessionTypes = map[string]bool{
	"registration": true,
	"ceremony":     true,
	"break":        true,
	"committee":    true,
	"social":       true,
	"presentation": true,
}

// Default returns the embedded site document.
func Default() (*Config, error) {
	return Parse(defaultDocument)
}

// Load reads a site document from path. An empty path loads the embedded default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a site document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse site config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Reveal returns the reveal settings of section.
func (c *Config) Reveal(section Section) (Reveal, error) {
	switch section {
	case SectionCommittees:
		return c.Reveals.Committees, nil
	case SectionSchedule:
		return c.Reveals.Schedule, nil
	case SectionVenue:
		return c.Reveals.Venue, nil
	case SectionSecretariats:
		return c.Reveals.Secretariats, nil
	}
	return Reveal{}, fmt.Errorf("%w: %q", ErrUnknownSection, section)
}

// Form looks up a registration form by key.
func (c *Config) Form(key string) (Form, bool) {
	f, ok := c.Forms[key]
	return f, ok
}

// Validate reports structural problems. Unparsable reveal instants and
// deadlines are only logged: they fail open at render time.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Event.Title) == "" {
		errs = append(errs, errors.New("event.title is required"))
	}

	for _, s := range Sections() {
		r, _ := c.Reveal(s)
		if _, err := reveal.ParseTarget(r.RevealAt); err != nil {
			log.Warn().
				Str("section", string(s)).
				Str("reveal_at", r.RevealAt).
				Msg("reveal instant is not a valid timestamp, section will be shown immediately")
		}
	}

	for i, rt := range c.RegistrationTypes {
		if rt.Key == "" {
			errs = append(errs, fmt.Errorf("registrationTypes[%d].key is required", i))
		}
	}

	for key, f := range c.Forms {
		if f.Link != "" {
			u, err := url.Parse(f.Link)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Errorf("forms.%s.link %q is not an absolute http(s) URL", key, f.Link))
			}
		} else if f.Enabled {
			errs = append(errs, fmt.Errorf("forms.%s is enabled but has no link", key))
		}
		if f.Deadline != "" {
			if _, err := reveal.ParseTarget(f.Deadline); err != nil {
				log.Warn().Str("form", key).Str("deadline", f.Deadline).Msg("form deadline is not a valid timestamp")
			}
		}
	}

	for i, day := range c.Schedule {
		for j, s := range day.Sessions {
			if !sessionTypes[s.Type] {
				errs = append(errs, fmt.Errorf("schedule[%d].sessions[%d]: unknown session type %q", i, j, s.Type))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
