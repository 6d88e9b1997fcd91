package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `language: en
pipeline:
  - name: WhitespaceTokenizer
  - name: DIETClassifier
    epochs: 100
policies:
  - name: MemoizationPolicy
  - name: TEDPolicy
`

const testDomain = `version: "2.0"
intents:
  - greet
  - goodbye
  - inform:
      use_entities: [name]
entities:
  - name
slots:
  name:
    type: text
forms:
  name_form:
    required_slots: {}
actions:
  - action_hello_world
responses:
  utter_greet:
    - text: "Hey!"
  utter_goodbye:
    - text: "Bye"
`

const testNLU = `version: "2.0"
nlu:
- intent: greet
  examples: |
    - hey
    - hello
- intent: inform
  examples: |
    - my name is [Sara](name)
    - call me [Ana]{"entity": "name"}
    - it is me
- synonym: Sara
  examples: |
    - sarah
    - sara
- regex: zipcode
  examples: |
    - [0-9]{5}
- lookup: cities
  examples: |
    - Berlin
    - Paris
`

const testStories = `version: "2.0"
stories:
- story: happy path
  steps:
  - intent: greet
  - action: utter_greet
rules:
- rule: say goodbye
  steps:
  - intent: goodbye
  - action: utter_goodbye
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0755))
	files := map[string]string{
		DefaultConfigPath:                    testConfig,
		DefaultDomainPath:                    testDomain,
		filepath.Join("data", "nlu.yml"):     testNLU,
		filepath.Join("data", "stories.yml"): testStories,
		filepath.Join("data", "README.md"):   "not training data",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	return root
}

func TestLoad_Summary(t *testing.T) {
	root := writeProject(t)

	td, err := Load(
		filepath.Join(root, DefaultConfigPath),
		filepath.Join(root, DefaultDomainPath),
		[]string{filepath.Join(root, DefaultDataPath)},
	)
	require.NoError(t, err)

	want := Summary{
		Language:          "en",
		Pipeline:          []string{"WhitespaceTokenizer", "DIETClassifier"},
		Policies:          []string{"MemoizationPolicy", "TEDPolicy"},
		NumIntentExamples: 5,
		NumEntityExamples: 2,
		NumActions:        3,
		NumTemplates:      2,
		NumSlots:          1,
		NumForms:          1,
		NumIntents:        3,
		NumEntities:       1,
		NumStorySteps:     2,
		NumLookupTables:   1,
		NumSynonyms:       2,
		NumRegexes:        1,
	}
	if diff := cmp.Diff(want, td.Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, td.Fingerprint, 64)
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	root := t.TempDir()

	td, err := Load(
		filepath.Join(root, "nope.yml"),
		filepath.Join(root, "missing.yml"),
		[]string{filepath.Join(root, "no-data")},
	)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, td.Summary())
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [\n"), 0644))

	_, err := Load(path, "", nil)
	assert.Error(t, err)
}

func TestLoad_FingerprintChangesWithContent(t *testing.T) {
	root := writeProject(t)
	configPath := filepath.Join(root, DefaultConfigPath)

	first, err := Load(configPath, "", nil)
	require.NoError(t, err)
	again, err := Load(configPath, "", nil)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)

	require.NoError(t, os.WriteFile(configPath, []byte("language: de\n"), 0644))
	changed, err := Load(configPath, "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, changed.Fingerprint)
	assert.Equal(t, "de", changed.Language)
}

func TestExampleBlock_List(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "nlu.yml")
	content := "nlu:\n- intent: greet\n  examples:\n  - text: hi\n  - hello\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	td, err := Load("", "", []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, td.IntentExamples)
}
