package refactor

import (
	"fmt"

	"haca/internal/document"

	"gopkg.in/yaml.v3"
)

func itemSection(section string) (document.SectionName, bool) {
	for _, name := range document.Sections {
		if name.Singular() == section {
			return name, true
		}
	}
	return "", false
}

// applyChanges replaces items of the mapping node of one document. The
// key shape is resolved against raw, the document as it is now.
func applyChanges(node *yaml.Node, raw map[string]any, kind document.Kind, changes []Change) error {
	for _, c := range changes {
		if err := applyChange(node, raw, kind, c); err != nil {
			return err
		}
	}
	return nil
}

func applyChange(node *yaml.Node, raw map[string]any, kind document.Kind, c Change) error {
	repl, err := document.ToNode(c.To)
	if err != nil {
		return err
	}

	switch c.Section {
	case SectionMode, SectionMax, SectionDescription:
		document.SetMappingValue(node, c.Section, repl)
		return nil
	}

	name, ok := itemSection(c.Section)
	if !ok {
		return fmt.Errorf("%w: unknown section %q", ErrStaleChange, c.Section)
	}
	key := document.SectionKey(raw, name)
	if kind == document.KindScript {
		key = "sequence"
	}
	_, value := document.MappingValue(node, key)
	if value == nil {
		return fmt.Errorf("%w: %s is missing", ErrStaleChange, key)
	}

	switch value.Kind {
	case yaml.MappingNode:
		if c.Index != 0 {
			return fmt.Errorf("%w: %s[%d] is out of range", ErrStaleChange, key, c.Index)
		}
		keepComments(value, repl)
		document.SetMappingValue(node, key, repl)
	case yaml.SequenceNode:
		if c.Index < 0 || c.Index >= len(value.Content) {
			return fmt.Errorf("%w: %s[%d] is out of range", ErrStaleChange, key, c.Index)
		}
		keepComments(value.Content[c.Index], repl)
		value.Content[c.Index] = repl
	default:
		return fmt.Errorf("%w: %s is not a list", ErrStaleChange, key)
	}
	return nil
}

func keepComments(from, to *yaml.Node) {
	to.HeadComment = from.HeadComment
	to.LineComment = from.LineComment
	to.FootComment = from.FootComment
}
