// Package importer reads the YAML files of a project (model config, domain,
// training data) and summarizes them for training and usage reporting.
package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default project file locations, relative to the project root.
const (
	DefaultConfigPath = "config.yml"
	DefaultDomainPath = "domain.yml"
	DefaultDataPath   = "data"
)

// entityAnnotation matches "[text](entity)" and "[text]{...}" in examples.
var entityAnnotation = regexp.MustCompile(`\[[^\]]+\](\([^)]+\)|\{[^}]+\})`)

// Domain lists the names declared in domain.yml.
type Domain struct {
	Intents   []string
	Entities  []string
	Slots     []string
	Forms     []string
	Actions   []string
	Responses []string
}

// TrainingData is everything training needs to know about a project.
type TrainingData struct {
	Language string
	Pipeline []string
	Policies []string
	Domain   Domain

	IntentExamples int
	EntityExamples int
	LookupTables   int
	Synonyms       int
	Regexes        int
	StorySteps     int

	// Fingerprint is a sha256 over every file that was read, in path order.
	Fingerprint string
}

type componentList []string

// UnmarshalYAML accepts a list of `{name: X, ...}` items or plain strings.
func (c *componentList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list of components", value.Line)
	}
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			*c = append(*c, item.Value)
		case yaml.MappingNode:
			var named struct {
				Name string `yaml:"name"`
			}
			if err := item.Decode(&named); err != nil {
				return err
			}
			*c = append(*c, named.Name)
		}
	}
	return nil
}

type modelConfig struct {
	Language string        `yaml:"language"`
	Pipeline componentList `yaml:"pipeline"`
	Policies componentList `yaml:"policies"`
}

// nameList collects names from a mapping (its keys) or from a sequence of
// scalars and single-key mappings.
type nameList []string

func (n *nameList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			*n = append(*n, value.Content[i].Value)
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				*n = append(*n, item.Value)
			case yaml.MappingNode:
				if len(item.Content) > 0 {
					*n = append(*n, item.Content[0].Value)
				}
			}
		}
	case yaml.ScalarNode:
		if value.Tag != "!!null" && value.Value != "" {
			*n = append(*n, value.Value)
		}
	}
	return nil
}

type domainFile struct {
	Intents   nameList `yaml:"intents"`
	Entities  nameList `yaml:"entities"`
	Slots     nameList `yaml:"slots"`
	Forms     nameList `yaml:"forms"`
	Actions   nameList `yaml:"actions"`
	Responses nameList `yaml:"responses"`
	Templates nameList `yaml:"templates"`
}

// exampleBlock is either a "- example" block string or a list of examples.
type exampleBlock []string

func (e *exampleBlock) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		for _, line := range strings.Split(value.Value, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "-") {
				if text := strings.TrimSpace(strings.TrimPrefix(line, "-")); text != "" {
					*e = append(*e, text)
				}
			}
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				*e = append(*e, item.Value)
			case yaml.MappingNode:
				var ex struct {
					Text string `yaml:"text"`
				}
				if err := item.Decode(&ex); err != nil {
					return err
				}
				*e = append(*e, ex.Text)
			}
		}
	}
	return nil
}

type nluItem struct {
	Intent   string       `yaml:"intent"`
	Synonym  string       `yaml:"synonym"`
	Regex    string       `yaml:"regex"`
	Lookup   string       `yaml:"lookup"`
	Examples exampleBlock `yaml:"examples"`
}

type dataFile struct {
	NLU     []nluItem   `yaml:"nlu"`
	Stories []yaml.Node `yaml:"stories"`
	Rules   []yaml.Node `yaml:"rules"`
}

// Load reads the project files. Paths that do not exist are skipped; files
// that exist but cannot be parsed are an error.
func Load(configPath, domainPath string, dataPaths []string) (*TrainingData, error) {
	td := &TrainingData{}
	hasher := sha256.New()

	read := func(path string) ([]byte, bool, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
		}
		hasher.Write([]byte(path))
		hasher.Write(data)
		return data, true, nil
	}

	if configPath != "" {
		data, ok, err := read(configPath)
		if err != nil {
			return nil, err
		}
		if ok {
			var mc modelConfig
			if err := yaml.Unmarshal(data, &mc); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
			td.Language = mc.Language
			td.Pipeline = mc.Pipeline
			td.Policies = mc.Policies
		}
	}

	if domainPath != "" {
		data, ok, err := read(domainPath)
		if err != nil {
			return nil, err
		}
		if ok {
			var df domainFile
			if err := yaml.Unmarshal(data, &df); err != nil {
				return nil, fmt.Errorf("failed to parse domain %s: %w", domainPath, err)
			}
			responses := df.Responses
			if len(responses) == 0 {
				responses = df.Templates
			}
			td.Domain = Domain{
				Intents:   df.Intents,
				Entities:  df.Entities,
				Slots:     df.Slots,
				Forms:     df.Forms,
				Actions:   df.Actions,
				Responses: responses,
			}
		}
	}

	files, err := collectDataFiles(dataPaths)
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		data, ok, err := read(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var f dataFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse training data %s: %w", path, err)
		}
		td.add(f)
	}

	td.Fingerprint = hex.EncodeToString(hasher.Sum(nil))
	return td, nil
}

func (td *TrainingData) add(f dataFile) {
	for _, item := range f.NLU {
		switch {
		case item.Intent != "":
			td.IntentExamples += len(item.Examples)
			for _, ex := range item.Examples {
				if entityAnnotation.MatchString(ex) {
					td.EntityExamples++
				}
			}
		case item.Synonym != "":
			td.Synonyms += len(item.Examples)
		case item.Regex != "":
			td.Regexes += len(item.Examples)
		case item.Lookup != "":
			td.LookupTables++
		}
	}
	td.StorySteps += len(f.Stories) + len(f.Rules)
}

// collectDataFiles expands directories into their YAML files, sorted.
func collectDataFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yml", ".yaml":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Summary is the shape reported when training starts.
type Summary struct {
	Language          string   `json:"language"`
	Pipeline          []string `json:"pipeline"`
	Policies          []string `json:"policies"`
	NumIntentExamples int      `json:"num_intent_examples"`
	NumEntityExamples int      `json:"num_entity_examples"`
	NumActions        int      `json:"num_actions"`
	NumTemplates      int      `json:"num_templates"`
	NumSlots          int      `json:"num_slots"`
	NumForms          int      `json:"num_forms"`
	NumIntents        int      `json:"num_intents"`
	NumEntities       int      `json:"num_entities"`
	NumStorySteps     int      `json:"num_story_steps"`
	NumLookupTables   int      `json:"num_lookup_tables"`
	NumSynonyms       int      `json:"num_synonyms"`
	NumRegexes        int      `json:"num_regexes"`
}

// Summary counts the loaded data. Actions include one utterance action per
// response.
func (td *TrainingData) Summary() Summary {
	return Summary{
		Language:          td.Language,
		Pipeline:          td.Pipeline,
		Policies:          td.Policies,
		NumIntentExamples: td.IntentExamples,
		NumEntityExamples: td.EntityExamples,
		NumActions:        len(td.Domain.Actions) + len(td.Domain.Responses),
		NumTemplates:      len(td.Domain.Responses),
		NumSlots:          len(td.Domain.Slots),
		NumForms:          len(td.Domain.Forms),
		NumIntents:        len(td.Domain.Intents),
		NumEntities:       len(td.Domain.Entities),
		NumStorySteps:     td.StorySteps,
		NumLookupTables:   td.LookupTables,
		NumSynonyms:       td.Synonyms,
		NumRegexes:        td.Regexes,
	}
}
