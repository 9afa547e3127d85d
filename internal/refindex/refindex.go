package refindex

import (
	"sort"

	"haca/internal/document"
)

// Index maps entity ids to the documents referencing them
type Index struct {
	refs map[string][]string
}

// Build walks every trigger, condition, action and script step of docs.
// Scene entity keys count as references too.
func Build(docs []*document.Document) *Index {
	idx := &Index{refs: make(map[string][]string)}
	for _, d := range docs {
		switch d.Kind {
		case document.KindScene:
			for _, entityID := range document.SortedKeys(document.Map(d.Raw, "entities")) {
				idx.add(entityID, d.EntityID)
			}
		default:
			for _, section := range document.Sections {
				for _, it := range d.Items(section) {
					for _, entityID := range document.CollectKey(it.Item, "entity_id") {
						idx.add(entityID, d.EntityID)
					}
				}
			}
		}
	}
	return idx
}

func (i *Index) add(entityID, docID string) {
	if !document.IsEntityID(entityID) || document.IsTemplate(entityID) {
		return
	}
	for _, existing := range i.refs[entityID] {
		if existing == docID {
			return
		}
	}
	i.refs[entityID] = append(i.refs[entityID], docID)
}

// Referenced reports whether any document references entityID
func (i *Index) Referenced(entityID string) bool {
	return len(i.refs[entityID]) > 0
}

// Documents returns the ids of documents referencing entityID in load order
func (i *Index) Documents(entityID string) []string {
	return i.refs[entityID]
}

// Entities returns every referenced entity id, sorted
func (i *Index) Entities() []string {
	out := make([]string, 0, len(i.refs))
	for id := range i.refs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the number of referenced entities
func (i *Index) Len() int {
	return len(i.refs)
}
