// Package fieldpath renders and parses the canonical field paths used to key
// matching rules and generators: `$` for the root, `.name` for a field,
// `.N` for an array index and `['name']` for keys that are not plain
// identifiers.
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a path: a field name or an array index.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Field returns a field segment.
func Field(name string) Segment {
	return Segment{name: name}
}

// Index returns an array index segment. Negative indices panic.
func Index(i int) Segment {
	if i < 0 {
		panic(fmt.Sprintf("fieldpath: negative index %d", i))
	}
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether the segment is an array index.
func (s Segment) IsIndex() bool { return s.isIndex }

// Name returns the field name, empty for index segments.
func (s Segment) Name() string { return s.name }

// Index returns the array index, zero for field segments.
func (s Segment) Index() int { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// Path is an immutable sequence of segments.
type Path struct {
	segs []Segment
}

// Root returns the empty path `$`.
func Root() Path {
	return Path{}
}

// Of builds a path from segments.
func Of(segs ...Segment) Path {
	return Path{segs: append([]Segment(nil), segs...)}
}

// Field returns a new path with a field segment appended.
func (p Path) Field(name string) Path {
	return p.append(Field(name))
}

// Index returns a new path with an index segment appended.
func (p Path) Index(i int) Path {
	return p.append(Index(i))
}

func (p Path) append(seg Segment) Path {
	segs := make([]Segment, len(p.segs), len(p.segs)+1)
	copy(segs, p.segs)
	return Path{segs: append(segs, seg)}
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []Segment {
	return append([]Segment(nil), p.segs...)
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsRoot reports whether the path has no segments.
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// Parent returns the path without its last segment. The root is its own parent.
func (p Path) Parent() Path {
	if len(p.segs) == 0 {
		return p
	}
	return Path{segs: p.segs[:len(p.segs)-1:len(p.segs)-1]}
}

// Last returns the final segment.
func (p Path) Last() (Segment, bool) {
	if len(p.segs) == 0 {
		return Segment{}, false
	}
	return p.segs[len(p.segs)-1], true
}

// Equal reports whether both paths have the same segment sequence.
func (p Path) Equal(other Path) bool {
	if len(p.segs) != len(other.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != other.segs[i] {
			return false
		}
	}
	return true
}

// String renders the canonical form.
func (p Path) String() string {
	return render(p.segs)
}

func render(segs []Segment) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range segs {
		writeSegment(&b, seg)
	}
	return b.String()
}

func writeSegment(b *strings.Builder, seg Segment) {
	if seg.isIndex {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(seg.index))
		return
	}
	if isPlain(seg.name) {
		b.WriteByte('.')
		b.WriteString(seg.name)
		return
	}
	b.WriteString("['")
	b.WriteString(strings.ReplaceAll(seg.name, "'", "\\'"))
	b.WriteString("']")
}

// isPlain reports whether name can be written after a dot without quoting.
// All-digit names are quoted so they cannot be mistaken for indices.
func isPlain(name string) bool {
	if name == "" {
		return false
	}
	digits := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '-':
			digits = false
		default:
			return false
		}
	}
	return !digits
}

// Parse reads a canonical path string.
func Parse(raw string) (Path, error) {
	if !strings.HasPrefix(raw, "$") {
		return Path{}, fmt.Errorf("fieldpath: %q must start with $", raw)
	}
	var segs []Segment
	i := 1
	for i < len(raw) {
		switch raw[i] {
		case '.':
			i++
			start := i
			for i < len(raw) && raw[i] != '.' && raw[i] != '[' {
				i++
			}
			token := raw[start:i]
			if token == "" {
				return Path{}, fmt.Errorf("fieldpath: empty segment in %q at %d", raw, start)
			}
			if n, err := strconv.Atoi(token); err == nil && n >= 0 && isDigits(token) {
				segs = append(segs, Index(n))
			} else {
				segs = append(segs, Field(token))
			}
		case '[':
			seg, next, err := parseBracket(raw, i)
			if err != nil {
				return Path{}, err
			}
			segs = append(segs, seg)
			i = next
		default:
			return Path{}, fmt.Errorf("fieldpath: unexpected %q in %q at %d", raw[i], raw, i)
		}
	}
	return Path{segs: segs}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseBracket(raw string, i int) (Segment, int, error) {
	i++ // [
	if i < len(raw) && raw[i] == '\'' {
		i++
		var b strings.Builder
		for i < len(raw) {
			c := raw[i]
			if c == '\\' && i+1 < len(raw) {
				b.WriteByte(raw[i+1])
				i += 2
				continue
			}
			if c == '\'' {
				if i+1 >= len(raw) || raw[i+1] != ']' {
					return Segment{}, 0, fmt.Errorf("fieldpath: expected ] in %q at %d", raw, i+1)
				}
				return Field(b.String()), i + 2, nil
			}
			b.WriteByte(c)
			i++
		}
		return Segment{}, 0, fmt.Errorf("fieldpath: unterminated quoted segment in %q", raw)
	}
	end := strings.IndexByte(raw[i:], ']')
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("fieldpath: unterminated index in %q", raw)
	}
	token := raw[i : i+end]
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 || !isDigits(token) {
		return Segment{}, 0, fmt.Errorf("fieldpath: invalid index %q in %q", token, raw)
	}
	return Index(n), i + end + 1, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
