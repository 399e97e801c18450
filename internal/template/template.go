package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Template is a named path pattern with {field} placeholders, for example
// "{project}/assets/{asset_type}/{asset}/{step}/{task}/usd/v{version}/main.usda".
// Placeholders never span a path separator.
type Template struct {
	Name string

	raw      string
	segments []segment
	fields   []string
}

// segment is one path component split into alternating literal and field
// parts.
type segment struct {
	parts []part
}

type part struct {
	text  string
	field bool
}

// Parse compiles a raw pattern. Placeholder names must be non-empty and
// braces must balance within each path component.
func Parse(name, raw string) (*Template, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("template %q: empty pattern", name)
	}

	tmpl := &Template{Name: name, raw: raw}
	seen := map[string]struct{}{}

	for _, component := range strings.Split(raw, "/") {
		seg, err := parseSegment(component)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		tmpl.segments = append(tmpl.segments, seg)
		for _, p := range seg.parts {
			if !p.field {
				continue
			}
			if _, dup := seen[p.text]; dup {
				continue
			}
			seen[p.text] = struct{}{}
			tmpl.fields = append(tmpl.fields, p.text)
		}
	}

	return tmpl, nil
}

func parseSegment(component string) (segment, error) {
	var seg segment
	rest := component
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			seg.parts = append(seg.parts, part{text: rest})
			break
		}
		if open > 0 {
			seg.parts = append(seg.parts, part{text: rest[:open]})
		}
		close := strings.IndexByte(rest, '}')
		if close < open {
			return segment{}, fmt.Errorf("unbalanced braces in %q", component)
		}
		field := rest[open+1 : close]
		if field == "" {
			return segment{}, fmt.Errorf("empty placeholder in %q", component)
		}
		seg.parts = append(seg.parts, part{text: field, field: true})
		rest = rest[close+1:]
	}
	return seg, nil
}

// Raw returns the pattern text the template was parsed from.
func (t *Template) Raw() string { return t.raw }

// Fields returns the placeholder names in order of first appearance.
func (t *Template) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Apply substitutes fields into the pattern. Every placeholder must be
// present and non-empty.
func (t *Template) Apply(fields map[string]string) (string, error) {
	var b strings.Builder
	for i, seg := range t.segments {
		if i > 0 {
			b.WriteByte('/')
		}
		for _, p := range seg.parts {
			if !p.field {
				b.WriteString(p.text)
				continue
			}
			value := fields[p.text]
			if value == "" {
				return "", fmt.Errorf("template %q: missing field %q", t.Name, p.text)
			}
			b.WriteString(value)
		}
	}
	return b.String(), nil
}

// Match attempts to extract field values from a concrete path. A path
// matches when it has the same number of components and every literal part
// lines up; a placeholder that appears twice must capture the same value
// each time.
func (t *Template) Match(path string) (map[string]string, bool) {
	components := strings.Split(strings.TrimSpace(path), "/")
	if len(components) != len(t.segments) {
		return nil, false
	}

	fields := make(map[string]string)
	for i, seg := range t.segments {
		if !matchSegment(seg, components[i], fields) {
			return nil, false
		}
	}
	return fields, true
}

// matchSegment walks the segment's parts against one path component,
// anchoring each capture on the next literal. A trailing placeholder
// captures the remainder of the component.
func matchSegment(seg segment, component string, fields map[string]string) bool {
	rest := component
	for i := 0; i < len(seg.parts); i++ {
		p := seg.parts[i]
		if !p.field {
			if !strings.HasPrefix(rest, p.text) {
				return false
			}
			rest = rest[len(p.text):]
			continue
		}

		var value string
		if i+1 < len(seg.parts) {
			next := seg.parts[i+1]
			// Two adjacent placeholders are ambiguous; parseSegment
			// allows them, matching treats the first as greedy-less.
			idx := strings.Index(rest, next.text)
			if !next.field {
				if idx < 0 {
					return false
				}
				value = rest[:idx]
				rest = rest[idx:]
			} else {
				value = ""
			}
		} else {
			value = rest
			rest = ""
		}

		if value == "" {
			return false
		}
		if prev, ok := fields[p.text]; ok && prev != value {
			return false
		}
		fields[p.text] = value
	}
	return rest == ""
}

// VersionDir locates the path component that carries the version
// placeholder. It returns the resolved directory above that component and a
// matcher that extracts the version number from a single directory entry,
// for version discovery scans.
func (t *Template) VersionDir(fields map[string]string, versionField string) (string, func(string) (int, bool), error) {
	idx := -1
	for i, seg := range t.segments {
		for _, p := range seg.parts {
			if p.field && p.text == versionField {
				idx = i
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		return "", nil, fmt.Errorf("template %q: no %q placeholder", t.Name, versionField)
	}

	var b strings.Builder
	for i := 0; i < idx; i++ {
		resolved, ok := resolveSegment(t.segments[i], fields)
		if !ok {
			return "", nil, fmt.Errorf("template %q: unresolved directory component", t.Name)
		}
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(resolved)
	}

	versionSeg := t.segments[idx]
	matcher := func(entry string) (int, bool) {
		captured := make(map[string]string, len(fields))
		for k, v := range fields {
			if k != versionField {
				captured[k] = v
			}
		}
		if !matchSegment(versionSeg, entry, captured) {
			return 0, false
		}
		return ParseVersion(captured[versionField])
	}
	return b.String(), matcher, nil
}

func resolveSegment(seg segment, fields map[string]string) (string, bool) {
	var b strings.Builder
	for _, p := range seg.parts {
		if !p.field {
			b.WriteString(p.text)
			continue
		}
		value := fields[p.text]
		if value == "" {
			return "", false
		}
		b.WriteString(value)
	}
	return b.String(), true
}

// FormatVersion renders a version number the way publish paths expect it,
// zero-padded to three digits.
func FormatVersion(n int) string {
	return fmt.Sprintf("%03d", n)
}

// ParseVersion reads a version field value, tolerating zero padding.
func ParseVersion(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
