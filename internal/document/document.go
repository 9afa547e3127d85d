package document

import (
	"fmt"
	"strconv"

	"haca/internal/utils"

	"gopkg.in/yaml.v3"
)

// Kind of configuration document
type Kind string

const (
	KindAutomation Kind = "automation"
	KindScript     Kind = "script"
	KindScene      Kind = "scene"
)

// Document files relative to the configuration root
const (
	AutomationsFile = "automations.yaml"
	ScriptsFile     = "scripts.yaml"
	ScenesFile      = "scenes.yaml"
)

// Document is one automation, script or scene
type Document struct {
	Kind     Kind
	Index    int    // position in the source file
	Slug     string // script key
	ID       string
	Alias    string
	EntityID string
	Raw      map[string]any
	Node     *yaml.Node // mapping node inside the source tree
}

// Name returns the alias, falling back to the runtime entity id
func (d *Document) Name() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.EntityID
}

// Items returns the indexed items of a section. Script sequences are the
// action section of a script.
func (d *Document) Items(name SectionName) []Indexed {
	if d.Kind == KindScript {
		if name != Actions {
			return []Indexed{}
		}
		return IndexedSection(map[string]any{"actions": d.Raw["sequence"]}, Actions)
	}
	return IndexedSection(d.Raw, name)
}

// Location formats the structural path of an item, e.g. "trigger[2]"
func (d *Document) Location(name SectionName, index int) string {
	if d.Kind == KindScript && name == Actions {
		return fmt.Sprintf("sequence[%d]", index)
	}
	return fmt.Sprintf("%s[%d]", name.Singular(), index)
}

// EntityLookup answers the registry questions needed to name documents
type EntityLookup interface {
	EntityForUniqueID(platform, uniqueID string) (string, bool)
	Registered(entityID string) bool
}

// Set holds every loaded document of a configuration
type Set struct {
	Automations []*Document
	Scripts     []*Document
	Scenes      []*Document
}

// All returns automations, scripts and scenes in that order
func (s *Set) All() []*Document {
	out := make([]*Document, 0, len(s.Automations)+len(s.Scripts)+len(s.Scenes))
	out = append(out, s.Automations...)
	out = append(out, s.Scripts...)
	return append(out, s.Scenes...)
}

// ByEntityID finds a document by its runtime entity id
func (s *Set) ByEntityID(entityID string) *Document {
	for _, d := range s.All() {
		if d.EntityID == entityID {
			return d
		}
	}
	return nil
}

func automationEntityID(raw map[string]any, index int, reg EntityLookup) string {
	id := Text(raw, "id")
	if id != "" && reg != nil {
		if entityID, ok := reg.EntityForUniqueID("automation", id); ok {
			return entityID
		}
	}
	if alias := String(raw, "alias"); alias != "" {
		candidate := "automation." + utils.EntitySlug(alias)
		if reg == nil || reg.Registered(candidate) {
			return candidate
		}
	}
	if id == "" {
		id = strconv.Itoa(index)
	}
	return "automation.unknown_" + id
}

func newAutomation(raw map[string]any, node *yaml.Node, index int, reg EntityLookup) *Document {
	return &Document{
		Kind:     KindAutomation,
		Index:    index,
		ID:       Text(raw, "id"),
		Alias:    String(raw, "alias"),
		EntityID: automationEntityID(raw, index, reg),
		Raw:      raw,
		Node:     node,
	}
}

func newScript(slug string, raw map[string]any, node *yaml.Node, index int) *Document {
	return &Document{
		Kind:     KindScript,
		Index:    index,
		Slug:     slug,
		ID:       slug,
		Alias:    String(raw, "alias"),
		EntityID: "script." + slug,
		Raw:      raw,
		Node:     node,
	}
}

func newScene(raw map[string]any, node *yaml.Node, index int) *Document {
	id := Text(raw, "id")
	name := String(raw, "name")
	if name == "" {
		name = id
	}
	return &Document{
		Kind:     KindScene,
		Index:    index,
		ID:       id,
		Alias:    String(raw, "name"),
		EntityID: "scene." + utils.SceneSlug(name),
		Raw:      raw,
		Node:     node,
	}
}
