package menu

import (
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stagehand/internal/logging"
	"stagehand/internal/scene"
	"stagehand/internal/tracking"
)

// Entry is one selectable menu item. Keys are unique within a menu and
// ordering is meaningful: the first entry is the implicit default.
type Entry struct {
	Key   string
	Label string
}

// Menu binds an ordered entry list to a node parameter and its override
// toggle. Menus are regenerated, never mutated in place, whenever their
// source records change.
type Menu struct {
	node     *scene.Node
	parm     string
	editable bool
	logger   *slog.Logger

	entries []Entry
	value   string
}

// Options controls one regeneration.
type Options struct {
	// Reverse flips entry order after any non-editable filtering.
	Reverse bool
	// TitleLabels renders labels in title case, for menus whose label
	// field carries a raw lowercase name.
	TitleLabels bool
}

var titleCaser = cases.Title(language.English)

// New binds a menu to node's parm. A non-editable menu presents a locked,
// at-most-one-entry view and never writes back to the node.
func New(node *scene.Node, parm string, editable bool, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Menu{
		node:     node,
		parm:     parm,
		editable: editable,
		logger:   logging.NewComponentLogger(logger, "menu"),
	}
}

// Parm returns the bound parameter name.
func (m *Menu) Parm() string { return m.parm }

// Editable reports whether selection changes propagate to the node.
func (m *Menu) Editable() bool { return m.editable }

// Entries returns the current entry list.
func (m *Menu) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Generate rebuilds the entry list from records, extracting keyField and
// labelField from each. When the menu is not editable the records are first
// filtered to at most one: the current selection if present, otherwise the
// first record. Selection is preserved across regeneration if its key
// survives, otherwise it falls back to the first entry, or empty when there
// are no entries.
func (m *Menu) Generate(records []tracking.Record, keyField, labelField string, opts Options) {
	current := m.rawValue()

	if !m.editable && len(records) > 1 {
		kept := records[0]
		for _, record := range records {
			if record[keyField] == current {
				kept = record
				break
			}
		}
		records = []tracking.Record{kept}
	}

	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		key := record[keyField]
		if key == "" {
			continue
		}
		label := record[labelField]
		if label == "" {
			label = key
		}
		if opts.TitleLabels {
			label = titleCaser.String(label)
		}
		entries = append(entries, Entry{Key: key, Label: label})
	}

	if opts.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	m.entries = entries
	m.SetValue(m.selectionFor(current))
}

func (m *Menu) selectionFor(current string) string {
	if len(m.entries) == 0 {
		return ""
	}
	for _, entry := range m.entries {
		if entry.Key == current {
			return current
		}
	}
	return m.entries[0].Key
}

// Selection returns the currently selected key, falling back to the first
// entry when no value is stored.
func (m *Menu) Selection() string {
	if raw := m.rawValue(); raw != "" {
		return raw
	}
	if len(m.entries) > 0 {
		return m.entries[0].Key
	}
	return ""
}

// SetValue records a selection. The bound parameter is only written when the
// menu is editable; the in-memory value updates either way so subsequent
// reads stay consistent.
func (m *Menu) SetValue(value string) {
	m.value = value
	if !m.editable {
		return
	}
	if m.node == nil || !m.node.HasParm(m.parm) {
		return
	}
	m.node.SetParm(m.parm, value)
}

// Overridden reports whether the menu's override toggle is set, freezing it
// against cascading updates.
func (m *Menu) Overridden() bool {
	if m.node == nil {
		return false
	}
	return m.node.ParmOverridden(m.parm)
}

// rawValue reads the backing parameter. A menu whose parameter has vanished
// logs a warning and reads empty; this is recoverable, never fatal.
func (m *Menu) rawValue() string {
	if m.node == nil {
		return m.value
	}
	if !m.node.HasParm(m.parm) {
		m.logger.Warn("menu parameter missing",
			logging.String(logging.FieldNode, m.node.Path),
			logging.String(logging.FieldParm, m.parm))
		return ""
	}
	if !m.editable && m.value != "" {
		return m.value
	}
	return m.node.EvalParm(m.parm)
}
