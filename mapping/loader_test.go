package mapping_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaypad/replaypad/mapping"
)

const jsonPreset = `{
  "controllerType": "xbox360",
  "mapping": [
    {"userButton": "button1", "controllerButton": ["a"], "useInSequence": true},
    {"userButton": "button2", "controllerButton": ["lt"], "useInSequence": false}
  ]
}`

const yamlPreset = `controllerType: xbox360
mapping:
  - userButton: button1
    controllerButton: [a]
    useInSequence: true
  - userButton: button2
    controllerButton: [lt]
    useInSequence: false
`

const tomlPreset = `controllerType = "xbox360"

[[mapping]]
userButton = "button1"
controllerButton = ["a"]
useInSequence = true

[[mapping]]
userButton = "button2"
controllerButton = ["lt"]
useInSequence = false
`

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{file: "preset.json", content: jsonPreset},
		{file: "preset.yaml", content: yamlPreset},
		{file: "preset.yml", content: yamlPreset},
		{file: "preset.toml", content: tomlPreset},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			table, doc, err := mapping.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "xbox360", doc.ControllerType)
			assert.Equal(t, 2, table.Len())
			assert.Equal(t, []string{"button1"}, table.SequenceColumns())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := mapping.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "preset.ini")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	_, _, err = mapping.Load(bad)
	assert.ErrorContains(t, err, "unsupported mapping preset format")

	invalid := filepath.Join(dir, "preset.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"mapping": [{"userButton": "b", "controllerButton": ["nope"]}]}`), 0o644))
	_, _, err = mapping.Load(invalid)
	assert.ErrorIs(t, err, mapping.ErrUnknownTarget)
}

func TestParseJSON(t *testing.T) {
	table, doc, err := mapping.ParseJSON([]byte(jsonPreset))
	require.NoError(t, err)
	assert.Equal(t, "xbox360", doc.ControllerType)
	assert.Equal(t, 2, table.Len())

	_, _, err = mapping.ParseJSON([]byte("{"))
	assert.Error(t, err)
}
