package scene

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"stagehand/internal/logging"
)

// GlobalsType is the node type that declares scene-wide context.
const GlobalsType = "global"

// Node is one node in a scene snapshot. Parameters are string valued; a
// companion parameter named "override_<parm>" holds the override toggle for
// <parm> where one exists.
type Node struct {
	Path       string            `json:"path"`
	Type       string            `json:"type"`
	Editable   bool              `json:"editable"`
	Parms      map[string]string `json:"parms,omitempty"`
	UserData   map[string]string `json:"user_data,omitempty"`
	References []string          `json:"references,omitempty"`
}

// Scene is a snapshot of the host application's scene graph: the scene file
// path plus the nodes stagehand interacts with.
type Scene struct {
	FilePath string  `json:"file_path"`
	Nodes    []*Node `json:"nodes"`

	byPath map[string]*Node
}

// New builds an in-memory scene snapshot.
func New(filePath string, nodes ...*Node) *Scene {
	sc := &Scene{FilePath: filePath, Nodes: nodes}
	sc.index()
	return sc
}

// Load reads a scene snapshot from disk.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene snapshot: %w", err)
	}
	var sc Scene
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scene snapshot: %w", err)
	}
	sc.index()
	return &sc, nil
}

// Save writes the scene snapshot back to disk.
func (s *Scene) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scene snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write scene snapshot: %w", err)
	}
	return nil
}

func (s *Scene) index() {
	s.byPath = make(map[string]*Node, len(s.Nodes))
	for _, node := range s.Nodes {
		if node == nil {
			continue
		}
		s.byPath[node.Path] = node
	}
}

// NodeAt returns the node at the given path, or nil.
func (s *Scene) NodeAt(path string) *Node {
	if s.byPath == nil {
		s.index()
	}
	return s.byPath[path]
}

// NodesOfType returns all nodes of the given type in declaration order.
func (s *Scene) NodesOfType(typeName string) []*Node {
	var matched []*Node
	for _, node := range s.Nodes {
		if node != nil && node.Type == typeName {
			matched = append(matched, node)
		}
	}
	return matched
}

// GlobalsNode returns the scene's globals node. When no globals node exists
// the scene path is the only remaining context source, which is reported at
// info level. More than one globals node is a scene authoring mistake; the
// first one wins.
func (s *Scene) GlobalsNode(logger *slog.Logger) *Node {
	if logger == nil {
		logger = logging.NewNop()
	}
	globals := s.NodesOfType(GlobalsType)
	switch {
	case len(globals) == 0:
		logger.Info("no globals node found in the scene, falling back to scene path")
		return nil
	case len(globals) > 1:
		logger.Warn("multiple globals nodes in scene",
			logging.String(logging.FieldNode, globals[0].Path))
	}
	return globals[0]
}

// HasParm reports whether the parameter exists on the node.
func (n *Node) HasParm(name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.Parms[name]
	return ok
}

// EvalParm returns the parameter value, or "" when the parameter is absent.
func (n *Node) EvalParm(name string) string {
	if n == nil {
		return ""
	}
	return n.Parms[name]
}

// SetParm writes a parameter value, creating the parameter if needed.
func (n *Node) SetParm(name, value string) {
	if n == nil {
		return
	}
	if n.Parms == nil {
		n.Parms = make(map[string]string)
	}
	n.Parms[name] = value
}

// OverrideName returns the name of the override toggle for a parameter.
func OverrideName(parm string) string {
	return "override_" + parm
}

// ParmOverridden reports whether the parameter's override toggle is set.
// Parameters without an override toggle are never overridden.
func (n *Node) ParmOverridden(parm string) bool {
	if n == nil {
		return false
	}
	value, ok := n.Parms[OverrideName(parm)]
	if !ok {
		return false
	}
	return strings.TrimSpace(value) == "1"
}

// HasOverride reports whether the parameter carries an override toggle.
func (n *Node) HasOverride(parm string) bool {
	return n.HasParm(OverrideName(parm))
}

// SetParmOverridden flips the override toggle for a parameter. Nodes without
// the toggle ignore the write.
func (n *Node) SetParmOverridden(parm string, overridden bool) {
	if n == nil || !n.HasOverride(parm) {
		return
	}
	if overridden {
		n.SetParm(OverrideName(parm), "1")
	} else {
		n.SetParm(OverrideName(parm), "0")
	}
}

// GetUserData returns the per-node custom storage value for a key.
func (n *Node) GetUserData(key string) string {
	if n == nil {
		return ""
	}
	return n.UserData[key]
}

// SetUserData writes a per-node custom storage value.
func (n *Node) SetUserData(key, value string) {
	if n == nil {
		return
	}
	if n.UserData == nil {
		n.UserData = make(map[string]string)
	}
	n.UserData[key] = value
}

// ClearUserData removes a per-node custom storage value.
func (n *Node) ClearUserData(key string) {
	if n == nil {
		return
	}
	delete(n.UserData, key)
}

// SortedReferences returns the node's stage references sorted and de-duplicated.
func (n *Node) SortedReferences() []string {
	if n == nil || len(n.References) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(n.References))
	refs := make([]string, 0, len(n.References))
	for _, ref := range n.References {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
