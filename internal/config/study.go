package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPlaceholderPlateID = "()"
	DefaultPlateIDDelimiter   = "ABTX_"
)

var studyValidate = validator.New(validator.WithRequiredStructEnabled())

// Config is the study configuration that drives plate selection and the
// per-subject enrichment cascade.
type Config struct {
	DesiredPlates           []string                   `yaml:"desired_plates" validate:"dive,required"`
	AssumeDatesPresent      bool                       `yaml:"assume_dates_present"`
	StudyStartDate          string                     `yaml:"study_start_date"`
	SubjectSpecificMetadata map[string]SubjectSettings `yaml:"subject_specific_metadata" validate:"required,min=1,dive,keys,required,endkeys"`
	Locations               map[string]Location        `yaml:"locations" validate:"dive,keys,required,endkeys"`
	ColorTags               map[string]string          `yaml:"color_tags" validate:"dive,keys,hexcolor|alphanum,endkeys,required"`
	PlaceholderPlateID      string                     `yaml:"placeholder_plate_id"`
	PlateIDDelimiter        string                     `yaml:"plate_id_delimiter"`
}

// SubjectSettings are the per-subject overrides.
type SubjectSettings struct {
	StudyStartDate string         `yaml:"study_start_date"`
	DateOfBirth    string         `yaml:"date_of_birth"`
	Location       string         `yaml:"location"`
	LocationBreak  *LocationBreak `yaml:"location_break"`
}

// LocationBreak switches a subject from one location to another on AfterStartDate.
type LocationBreak struct {
	BeforeLocation string `yaml:"before_location" validate:"required"`
	AfterLocation  string `yaml:"after_location" validate:"required"`
	AfterStartDate string `yaml:"after_start_date" validate:"required"`
}

// Location is a named set of constant metadata fields.
type Location struct {
	ConstantFields map[string]string `yaml:"constant_fields"`
}

// Load reads, defaults and validates a YAML study configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML study configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills the optional keys left empty.
func (c *Config) ApplyDefaults() {
	if c.PlaceholderPlateID == "" {
		c.PlaceholderPlateID = DefaultPlaceholderPlateID
	}
	if c.PlateIDDelimiter == "" {
		c.PlateIDDelimiter = DefaultPlateIDDelimiter
	}
}

// Validate checks struct tags and the references between sections.
func (c *Config) Validate() error {
	if err := studyValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	for _, shorthand := range c.SubjectShorthands() {
		settings := c.SubjectSpecificMetadata[shorthand]
		if settings.StudyStartDate == "" && c.StudyStartDate == "" {
			errs = append(errs, fmt.Errorf("subject %q: no study_start_date and no global default", shorthand))
		}
		if settings.Location != "" {
			if _, ok := c.Locations[settings.Location]; !ok {
				errs = append(errs, fmt.Errorf("subject %q: unknown location %q", shorthand, settings.Location))
			}
		}
		if br := settings.LocationBreak; br != nil {
			if err := studyValidate.Struct(br); err != nil {
				errs = append(errs, fmt.Errorf("subject %q: location_break: %w", shorthand, err))
				continue
			}
			for _, name := range []string{br.BeforeLocation, br.AfterLocation} {
				if _, ok := c.Locations[name]; !ok {
					errs = append(errs, fmt.Errorf("subject %q: location_break names unknown location %q", shorthand, name))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SubjectShorthands returns the configured subject shorthands, sorted.
func (c *Config) SubjectShorthands() []string {
	names := make([]string, 0, len(c.SubjectSpecificMetadata))
	for name := range c.SubjectSpecificMetadata {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subject returns the settings for a shorthand with the global study start
// date filled in where the subject does not override it.
func (c *Config) Subject(shorthand string) (SubjectSettings, bool) {
	settings, ok := c.SubjectSpecificMetadata[shorthand]
	if !ok {
		return SubjectSettings{}, false
	}
	if settings.StudyStartDate == "" {
		settings.StudyStartDate = c.StudyStartDate
	}
	return settings, true
}

// LocationFields returns the constant fields of a named location.
func (c *Config) LocationFields(name string) map[string]string {
	return c.Locations[name].ConstantFields
}
