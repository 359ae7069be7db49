package llvmir

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Origin tells whether a location is the instruction's own or the call site
// it was inlined into.
type Origin uint8

const (
	// OriginDirect is the location of the instruction itself.
	OriginDirect Origin = iota
	// OriginInlinedAt is the outer call site that caused inlining.
	OriginInlinedAt
)

func (o Origin) String() string {
	switch o {
	case OriginDirect:
		return "direct"
	case OriginInlinedAt:
		return "inlined-at"
	default:
		return "unknown"
	}
}

// SourceLocation is a file/line pair from debug info.
type SourceLocation struct {
	Filename  string
	Directory string
	Line      uint32
	Origin    Origin
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.Filename, l.Line)
}

// DebugLocations holds the direct location of an instruction and, when it
// was inlined, the location of the outer call.
type DebugLocations struct {
	Direct    *SourceLocation
	InlinedAt *SourceLocation
}

// Each yields the present locations, direct first.
func (d DebugLocations) Each(fn func(SourceLocation)) {
	if d.Direct != nil {
		fn(*d.Direct)
	}
	if d.InlinedAt != nil {
		fn(*d.InlinedAt)
	}
}

type mdKind uint8

const (
	mdScope mdKind = iota + 1 // any node with a file: field
	mdFile
	mdLocation
)

type mdNode struct {
	kind      mdKind
	line      uint32
	scope     int
	inlinedAt int
	file      int
	filename  string
	directory string
}

// metadataTable keeps only the debug nodes needed to resolve !dbg.
type metadataTable struct {
	nodes map[int]*mdNode
}

func newMetadataTable() *metadataTable {
	return &metadataTable{nodes: make(map[int]*mdNode)}
}

func (p *parser) metadata(text string) error {
	c := newCursor(text)
	c.bump()
	if !('0' <= c.peek() && c.peek() <= '9') {
		// named metadata: !llvm.dbg.cu = !{...}
		return nil
	}
	slot, err := metadataSlot(c.rest())
	if err != nil {
		return p.errorf("metadata: %v", err)
	}
	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		return p.errorf("expected '=' in metadata !%d", slot)
	}
	body := strings.TrimSpace(text[eq+1:])
	body = strings.TrimPrefix(body, "distinct ")
	if !strings.HasPrefix(body, "!DI") {
		return nil
	}
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return nil
	}
	kind := body[1:open]
	fields := splitFields(body[open+1 : len(body)-1])

	node := &mdNode{scope: -1, inlinedAt: -1, file: -1}
	switch kind {
	case "DILocation":
		node.kind = mdLocation
		if node.line, err = lineField(fields["line"]); err != nil {
			return p.errorf("!%d: %v", slot, err)
		}
		node.scope = refField(fields["scope"])
		node.inlinedAt = refField(fields["inlinedAt"])
	case "DIFile":
		node.kind = mdFile
		if node.filename, err = stringField(fields["filename"]); err != nil {
			return p.errorf("!%d filename: %v", slot, err)
		}
		if node.directory, err = stringField(fields["directory"]); err != nil {
			return p.errorf("!%d directory: %v", slot, err)
		}
		if !validText(node.filename) {
			return &EncodingError{Name: p.name, Line: p.lineNo, What: "filename"}
		}
		if !validText(node.directory) {
			return &EncodingError{Name: p.name, Line: p.lineNo, What: "directory"}
		}
	default:
		ref, ok := fields["file"]
		if !ok {
			return nil
		}
		node.kind = mdScope
		node.file = refField(ref)
	}
	p.mod.md.nodes[slot] = node
	return nil
}

// splitFields splits "key: value, key: value" at top-level commas.
func splitFields(s string) map[string]string {
	out := make(map[string]string)
	depth := 0
	inStr := false
	start := 0
	flush := func(end int) {
		part := strings.TrimSpace(s[start:end])
		if k, v, ok := strings.Cut(part, ":"); ok {
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inStr = !inStr
		case '(', '{', '[':
			if !inStr {
				depth++
			}
		case ')', '}', ']':
			if !inStr {
				depth--
			}
		case ',':
			if !inStr && depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}

func lineField(v string) (uint32, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad line %q", v)
	}
	line, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, fmt.Errorf("line %d overflows: %w", n, err)
	}
	return line, nil
}

func refField(v string) int {
	if !strings.HasPrefix(v, "!") {
		return -1
	}
	slot, err := metadataSlot(v[1:])
	if err != nil {
		return -1
	}
	return slot
}

func stringField(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	c := newCursor(v)
	return c.quoted()
}

func (t *metadataTable) locations(slot int) DebugLocations {
	var out DebugLocations
	loc := t.nodes[slot]
	if loc == nil || loc.kind != mdLocation {
		return out
	}
	out.Direct = t.resolve(loc, OriginDirect)
	if parent := t.nodes[loc.inlinedAt]; loc.inlinedAt >= 0 && parent != nil && parent.kind == mdLocation {
		out.InlinedAt = t.resolve(parent, OriginInlinedAt)
	}
	return out
}

// resolve maps a DILocation to the file of its scope. Empty filename with
// line 0 means no location.
func (t *metadataTable) resolve(loc *mdNode, origin Origin) *SourceLocation {
	sl := &SourceLocation{Line: loc.line, Origin: origin}
	if file := t.fileOf(loc.scope); file != nil {
		sl.Filename = file.filename
		sl.Directory = file.directory
	}
	if sl.Filename == "" && sl.Line == 0 {
		return nil
	}
	return sl
}

func (t *metadataTable) fileOf(scope int) *mdNode {
	n := t.nodes[scope]
	if scope < 0 || n == nil {
		return nil
	}
	switch n.kind {
	case mdFile:
		return n
	case mdScope:
		if f := t.nodes[n.file]; n.file >= 0 && f != nil && f.kind == mdFile {
			return f
		}
	}
	return nil
}
