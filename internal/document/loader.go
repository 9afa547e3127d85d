package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"haca/internal/utils"

	"gopkg.in/yaml.v3"
)

// ErrMalformed marks a document file that was read but could not be used:
// a YAML syntax error or the wrong top level shape
var ErrMalformed = errors.New("malformed document file")

// ReadFile parses a YAML file into its document node. A missing or empty
// file yields a nil node and no error.
func ReadFile(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformed, path, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	return &root, nil
}

// Top returns the top level node of a parsed file, or nil
func Top(root *yaml.Node) *yaml.Node {
	if root == nil || len(root.Content) == 0 {
		return nil
	}
	return root.Content[0]
}

// DecodeMapping decodes a mapping node, rejecting every other kind
func DecodeMapping(n *yaml.Node) (map[string]any, error) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, errors.New("not a mapping")
	}
	raw := map[string]any{}
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ParseAutomations turns the automations file tree into documents.
// Entries that are not mappings are logged and skipped.
func ParseAutomations(root *yaml.Node, reg EntityLookup) ([]*Document, error) {
	top := Top(root)
	if top == nil {
		return []*Document{}, nil
	}
	if top.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s: expected a list of automations", ErrMalformed, AutomationsFile)
	}
	docs := make([]*Document, 0, len(top.Content))
	for i, n := range top.Content {
		raw, err := DecodeMapping(n)
		if err != nil {
			utils.Logger("DOCUMENT").Warnf("Skipping automation %d (line %d): %v", i, n.Line, err)
			continue
		}
		docs = append(docs, newAutomation(raw, n, i, reg))
	}
	return docs, nil
}

// ParseScripts turns the scripts file tree into documents
func ParseScripts(root *yaml.Node) ([]*Document, error) {
	top := Top(root)
	if top == nil {
		return []*Document{}, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: expected a mapping of scripts", ErrMalformed, ScriptsFile)
	}
	docs := make([]*Document, 0, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		slug := top.Content[i].Value
		raw, err := DecodeMapping(top.Content[i+1])
		if err != nil {
			utils.Logger("DOCUMENT").Warnf("Skipping script %s: %v", slug, err)
			continue
		}
		docs = append(docs, newScript(slug, raw, top.Content[i+1], i/2))
	}
	return docs, nil
}

// ParseScenes turns the scenes file tree into documents. Scenes without
// an id are managed elsewhere and skipped.
func ParseScenes(root *yaml.Node) ([]*Document, error) {
	top := Top(root)
	if top == nil {
		return []*Document{}, nil
	}
	if top.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s: expected a list of scenes", ErrMalformed, ScenesFile)
	}
	docs := make([]*Document, 0, len(top.Content))
	for i, n := range top.Content {
		raw, err := DecodeMapping(n)
		if err != nil {
			utils.Logger("DOCUMENT").Warnf("Skipping scene %d (line %d): %v", i, n.Line, err)
			continue
		}
		if Text(raw, "id") == "" {
			continue
		}
		docs = append(docs, newScene(raw, n, i))
	}
	return docs, nil
}

// LoadAutomations reads and parses automations.yaml under configDir
func LoadAutomations(configDir string, reg EntityLookup) ([]*Document, *yaml.Node, error) {
	root, err := ReadFile(filepath.Join(configDir, AutomationsFile))
	if err != nil {
		return nil, nil, err
	}
	docs, err := ParseAutomations(root, reg)
	if err != nil {
		return nil, nil, err
	}
	return docs, root, nil
}

// LoadScripts reads and parses scripts.yaml under configDir
func LoadScripts(configDir string) ([]*Document, *yaml.Node, error) {
	root, err := ReadFile(filepath.Join(configDir, ScriptsFile))
	if err != nil {
		return nil, nil, err
	}
	docs, err := ParseScripts(root)
	if err != nil {
		return nil, nil, err
	}
	return docs, root, nil
}

// LoadScenes reads and parses scenes.yaml under configDir
func LoadScenes(configDir string) ([]*Document, *yaml.Node, error) {
	root, err := ReadFile(filepath.Join(configDir, ScenesFile))
	if err != nil {
		return nil, nil, err
	}
	docs, err := ParseScenes(root)
	if err != nil {
		return nil, nil, err
	}
	return docs, root, nil
}

// Load reads every document collection under configDir. Missing files are
// empty collections. A malformed file is logged and treated as empty so
// the other collections are still audited; only read failures are errors.
func Load(configDir string, reg EntityLookup) (*Set, error) {
	automations, _, err := LoadAutomations(configDir, reg)
	if automations, err = orEmpty(automations, err); err != nil {
		return nil, err
	}
	scripts, _, err := LoadScripts(configDir)
	if scripts, err = orEmpty(scripts, err); err != nil {
		return nil, err
	}
	scenes, _, err := LoadScenes(configDir)
	if scenes, err = orEmpty(scenes, err); err != nil {
		return nil, err
	}
	return &Set{Automations: automations, Scripts: scripts, Scenes: scenes}, nil
}

func orEmpty(docs []*Document, err error) ([]*Document, error) {
	if err == nil {
		return docs, nil
	}
	if errors.Is(err, ErrMalformed) {
		utils.Logger("DOCUMENT").Warnf("Ignoring file: %v", err)
		return []*Document{}, nil
	}
	return nil, err
}
