// Package maven implements the C1 version-algebra comparator for Maven
// coordinate versions, used for the Maven/Gradle/Bazel ecosystems.
package maven

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

// Version is a parsed Maven artifact version.
//
// Maven versions have the extremely fun property of being arbitrarily long
// and arbitrarily nested: a version is really a tree, where both appending a
// subtree and mutating a node have their own ordering rules.
//
// Maven's own wiki description of the algorithm doesn't match its actual
// behavior; this comparator is reverse-engineered from the reference
// implementation instead.
//
// See also: https://cwiki.apache.org/confluence/display/MAVENOLD/Versioning
// See also: https://github.com/apache/maven/blob/maven-3.9.x/maven-artifact/src/main/java/org/apache/maven/artifact/versioning/ComparableVersion.java
type Version struct {
	orig string
	c    node
}

// Compare implements the standard "compare" idiom.
//
//   - < == -1
//   - == == 0
//   - > == 1.
func (v *Version) Compare(v2 *Version) int {
	return v.c.Compare(&v2.c)
}

// String implements [fmt.Stringer].
func (v *Version) String() string {
	return v.orig
}

// ParseVersion parses s as a Maven artifact version.
//
// Parsing tokenizes the string into a run of digit and non-digit spans,
// with a "-" always starting a new nested list the way Maven's own
// comparator treats qualifier separators as tree boundaries.
func ParseVersion(s string) (*Version, error) {
	v := &Version{
		orig: s,
		c:    node{Kind: nodeList},
	}
	p := &tokenizer{cur: &v.c.List}
	for i, r := range s {
		if err := p.feed(s, i, r); err != nil {
			return nil, err
		}
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	normalize(&v.c.List)
	return v, nil
}

// tokenizer accumulates runs of digit or non-digit runes from a Maven
// version string into the node list it's currently appending to, starting
// a nested list whenever a "-" boundary is seen.
type tokenizer struct {
	b        strings.Builder
	cur      *[]node
	pos      int
	scanning bool // true while the current run is digits
}

func (p *tokenizer) feed(s string, i int, r rune) error {
	switch {
	case r == '.':
		if i == p.pos {
			p.b.WriteByte('0')
		}
		if err := p.closeRun(); err != nil {
			return err
		}
		p.pos = i + 1
	case r == '-':
		if i == p.pos {
			p.b.WriteByte('0')
		}
		if err := p.closeRun(); err != nil {
			return err
		}
		p.cur = appendList(p.cur)
		p.pos = i + 1
	case unicode.IsDigit(r):
		if !p.scanning && i > p.pos {
			appendString(p.cur, &p.b)
			p.cur = appendList(p.cur)
			p.pos = i
		}
		p.scanning = true
		p.b.WriteRune(r)
	default:
		if p.scanning && i > p.pos {
			if err := appendInt(p.cur, &p.b); err != nil {
				return err
			}
			p.cur = appendList(p.cur)
			p.pos = i
		}
		p.scanning = false
		p.b.WriteRune(r)
	}
	return nil
}

func (p *tokenizer) closeRun() error {
	if p.scanning {
		return appendInt(p.cur, &p.b)
	}
	appendString(p.cur, &p.b)
	return nil
}

func (p *tokenizer) flush() error {
	return p.closeRun()
}

// node is one position in the tree of a single Maven version.
type node struct {
	Kind nodeKind
	Str  string
	Int  big.Int // unbounded: Maven places no size limit on a numeric token
	List []node
}

// nodeKind indicates what a [node] holds.
//
// A "null" kind is defined but shouldn't appear in a normalized version.
type nodeKind int

const (
	nodeNull   nodeKind = iota // null
	nodeInt                    // int
	nodeString                 // string
	nodeList                   // list
)

// String implements [fmt.Stringer].
func (c *node) String() string {
	if c == nil {
		return "<nil>"
	}
	switch c.Kind {
	case nodeInt:
		return c.Int.Text(10)
	case nodeString:
		return strconv.Quote(c.Str)
	case nodeList:
		var b strings.Builder
		b.WriteByte('[')
		for i := range c.List {
			if i != 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.List[i].String())
		}
		b.WriteByte(']')
		return b.String()
	default:
	}
	return "null"
}

// Compare implements the standard "compare" idiom.
//
// Maven's version algorithm has the curious property of explicitly
// allowing comparisons against a nil node, standing in for a token that
// one side's version simply doesn't have.
func (c *node) Compare(other *node) int {
	switch {
	case c == nil:
		panic("programmer error: Compare called with nil receiver")
	case c.Kind == nodeInt && other == nil:
		other = &node{Kind: nodeInt}
		other.Int.SetInt64(0)
		fallthrough
	case c.Kind == nodeInt && other.Kind == nodeInt:
		return c.Int.Cmp(&other.Int)
	case c.Kind == nodeInt && other.Kind == nodeList:
		return 1
	case c.Kind == nodeInt && other.Kind == nodeString:
		return 1
	case c.Kind == nodeList && other == nil:
		if len(c.List) == 0 {
			return 0
		}
		for i := range c.List {
			c := c.List[i].Compare(nil)
			if c != 0 {
				return c
			}
		}
		return 0
	case c.Kind == nodeList && other.Kind == nodeList:
		for i := 0; i < len(c.List) || i < len(other.List); i++ {
			var l, r *node
			if i < len(c.List) {
				l = &c.List[i]
			}
			if i < len(other.List) {
				r = &other.List[i]
			}
			var res int
			if l == nil {
				if r != nil {
					res = -1 * r.Compare(l)
				}
			} else {
				res = l.Compare(r)
			}
			if res != 0 {
				return res
			}
		}
		return 0
	case c.Kind == nodeList && other.Kind == nodeInt:
		return -1
	case c.Kind == nodeList && other.Kind == nodeString:
		return 1
	case c.Kind == nodeString && other == nil:
		other = &node{Kind: nodeString, Str: ""}
		fallthrough
	case c.Kind == nodeString && other.Kind == nodeString:
		return strings.Compare(ordString(c.Str), ordString(other.Str))
	case c.Kind == nodeString && other.Kind == nodeInt:
		return -1
	case c.Kind == nodeString && other.Kind == nodeList:
		return -1
	default:
		panic("programmer error: unhandled logic possibility")
	}
}

// appendInt adds an int node to l from the contents of b.
func appendInt(l *[]node, b *strings.Builder) error {
	var v big.Int
	if _, ok := v.SetString(b.String(), 10); !ok {
		return fmt.Errorf("unable to parse number %q", b.String())
	}
	*l = append(*l, node{Kind: nodeInt, Int: v})
	b.Reset()
	return nil
}

// appendString adds a string node to l from the contents of b.
func appendString(l *[]node, b *strings.Builder) {
	*l = append(*l, node{Kind: nodeString, Str: b.String()})
	b.Reset()
}

// appendList adds a list node to l and returns a pointer to its own list.
func appendList(l *[]node) *[]node {
	ci := len(*l)
	*l = append(*l, node{Kind: nodeList})
	c := &(*l)[ci]
	return &c.List
}

// isNull reports if the node should be considered null.
func (c *node) isNull() bool {
	return c == nil ||
		c.Kind == nodeNull ||
		(c.Kind == nodeInt && c.Int.Cmp(big.NewInt(0)) == 0) ||
		(c.Kind == nodeString && c.Str == "") ||
		(c.Kind == nodeList && len(c.List) == 0)
}

// normalize walks the node list backwards, clipping effectively-null
// trailing nodes and normalizing any trailing list nodes in turn.
func normalize(cs *[]node) {
	for i := len(*cs) - 1; i >= 0; i-- {
		c := &(*cs)[i]
		if c.isNull() {
			j := i + 1
			if j > len(*cs) {
				*cs = (*cs)[:i]
			} else {
				*cs = append((*cs)[:i], (*cs)[j:]...)
			}
			continue
		} else if c.Kind != nodeList {
			break
		}
		normalize(&c.List)
	}
}

// ordString is Maven's string-qualifier ordering function: it takes a
// qualifier string and returns a new string that sorts correctly against
// other qualifiers under plain lexical ordering.
func ordString(s string) string {
	s = strings.ToLower(s)
	q, ok := qualifiers[s]
	if !ok {
		return fmt.Sprintf("%d-%s", unknownQualifier, s)
	}
	return q
}

// qualifiers is reverse-engineered from the Maven source:
// https://github.com/apache/maven/blob/maven-3.9.x/maven-artifact/src/main/java/org/apache/maven/artifact/versioning/ComparableVersion.java#L356
var qualifiers = map[string]string{
	"alpha":     "0",
	"a":         "0",
	"beta":      "1",
	"b":         "1",
	"milestone": "2",
	"m":         "2",
	"rc":        "3",
	"cr":        "3",
	"snapshot":  "4",
	"":          "5",
	"ga":        "5",
	"final":     "5",
	"release":   "5",
	"sp":        "6",
}

// unknownQualifier is prepended to arbitrary strings in ordString, so
// unrecognized qualifiers sort after all known ones, and lexically among
// themselves.
const unknownQualifier = 7
