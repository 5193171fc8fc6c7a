package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// Load reads a mapping preset from disk. The format is chosen by file
// extension: .json, .yaml/.yml or .toml.
func Load(path string) (*Table, *Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read mapping preset: %w", err)
	}

	var doc Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, nil, fmt.Errorf("unsupported mapping preset format: %s", ext)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse mapping preset %s: %w", path, err)
	}

	t, err := doc.Table()
	if err != nil {
		return nil, nil, fmt.Errorf("mapping preset %s: %w", path, err)
	}
	return t, &doc, nil
}

// ParseJSON builds a table from an in-memory JSON document, as delivered over
// the control API.
func ParseJSON(data []byte) (*Table, *Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse mapping document: %w", err)
	}
	t, err := doc.Table()
	if err != nil {
		return nil, nil, err
	}
	return t, &doc, nil
}
