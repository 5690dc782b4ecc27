package classify

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/claimstack/docpipe/internal/model"
)

// templateFile is the YAML shape for a template override file.
type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Type             string   `yaml:"type"`
	Category         string   `yaml:"category"`
	Patterns         []string `yaml:"patterns"`
	RequiredPatterns int      `yaml:"required_patterns"`
	Weight           float64  `yaml:"weight"`
	ExtractionFields []string `yaml:"extraction_fields"`
	ProhibitedFields []string `yaml:"prohibited_fields,omitempty"`
}

// LoadTemplates reads a template registry from a YAML file. Declaration
// order in the file becomes registration order, which is the tie-break
// policy, so the file's ordering is significant.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read templates %s", path)
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "classify: parse templates")
	}
	if len(f.Templates) == 0 {
		return nil, eris.Errorf("classify: no templates defined in %s", path)
	}

	out := make([]Template, 0, len(f.Templates))
	for _, e := range f.Templates {
		if e.Type == "" {
			return nil, eris.New("classify: template missing type")
		}
		if len(e.Patterns) == 0 {
			return nil, eris.Errorf("classify: template %s has no patterns", e.Type)
		}

		patterns := make([]*regexp.Regexp, len(e.Patterns))
		for i, p := range e.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, eris.Wrapf(err, "classify: template %s pattern %d", e.Type, i)
			}
			patterns[i] = re
		}

		// Defaults for fields the file omits.
		required := e.RequiredPatterns
		if required <= 0 {
			required = 1
		}
		weight := e.Weight
		if weight <= 0 {
			weight = 1.0
		}
		category := model.Category(e.Category)
		if category == "" {
			category = model.CategoryProcessing
		}

		out = append(out, Template{
			Type:             e.Type,
			Category:         category,
			Patterns:         patterns,
			RequiredPatterns: required,
			Weight:           weight,
			ExtractionFields: e.ExtractionFields,
			ProhibitedFields: e.ProhibitedFields,
		})
	}

	return out, nil
}
