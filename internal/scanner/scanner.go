package scanner

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/nao1215/codeflip/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ProcessedAttr marks a container produced by a committed dual view.
// Blocks inside such a container are never scanned again.
const ProcessedAttr = "data-codeflip"

// Mode selects how the marker class is interpreted.
type Mode string

const (
	// ModeOptOut processes every block except those whose previous sibling
	// carries the marker.
	ModeOptOut Mode = "opt-out"

	// ModeOptIn processes only blocks whose previous sibling carries the marker.
	ModeOptIn Mode = "opt-in"
)

// Validate reports whether m is a known mode.
func (m Mode) Validate() error {
	switch m {
	case ModeOptOut, ModeOptIn:
		return nil
	default:
		return fmt.Errorf("unknown participation mode %q (want %q or %q)", m, ModeOptOut, ModeOptIn)
	}
}

// Policy decides which blocks participate.
type Policy struct {
	// Mode is opt-out or opt-in. The zero value behaves as opt-out.
	Mode Mode

	// Marker is the class name looked up on the preceding sibling element.
	// An empty marker never matches, so opt-out keeps every block and
	// opt-in keeps none.
	Marker string
}

// Marked reports whether the block carries the marker: the closest
// preceding sibling element has the marker class itself or on one of its
// descendants. Ancestors and earlier siblings are not consulted.
func (p Policy) Marked(block *html.Node) bool {
	if p.Marker == "" {
		return false
	}
	prev := page.PrevElementSibling(block)
	if prev == nil {
		return false
	}
	return hasClassWithin(prev, p.Marker)
}

// Accepts reports whether block participates under this policy.
func (p Policy) Accepts(block *html.Node) bool {
	marked := p.Marked(block)
	if p.Mode == ModeOptIn {
		return marked
	}
	return !marked
}

func hasClassWithin(n *html.Node, class string) bool {
	if page.HasClass(n, class) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasClassWithin(c, class) {
			return true
		}
	}
	return false
}

// SourceBlock is one candidate <pre> element.
type SourceBlock struct {
	// Index is the position of the block among all <pre> elements of the
	// page at scan time, counted in document order from zero.
	Index int

	// Node is the <pre> element in the live tree.
	Node *html.Node

	// Text is the block's text content captured at scan time.
	Text string
}

// Sequence is a lazy, single-use sequence of source blocks. The set of
// <pre> elements is fixed when Scan is called; the policy is applied while
// iterating.
type Sequence struct {
	nodes  []*html.Node
	policy Policy
	used   atomic.Bool
}

// Scan snapshots every <pre> element of doc in document order and returns
// a sequence over those accepted by policy. Elements added to the tree
// after Scan returns are not observed.
func Scan(doc *html.Node, policy Policy) *Sequence {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Pre {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if doc != nil {
		walk(doc)
	}
	return &Sequence{nodes: nodes, policy: policy}
}

// Candidates returns the number of <pre> elements seen at scan time,
// before filtering.
func (s *Sequence) Candidates() int {
	return len(s.nodes)
}

// All returns an iterator over the accepted blocks. The sequence can be
// consumed once; later calls yield nothing.
func (s *Sequence) All() iter.Seq[SourceBlock] {
	return func(yield func(SourceBlock) bool) {
		if !s.used.CompareAndSwap(false, true) {
			return
		}
		for i, n := range s.nodes {
			if insideProcessed(n) || nestedInPre(n) || !s.policy.Accepts(n) {
				continue
			}
			if !yield(SourceBlock{Index: i, Node: n, Text: page.TextContent(n)}) {
				return
			}
		}
	}
}

// Collect drains the sequence into a slice.
func (s *Sequence) Collect() []SourceBlock {
	var blocks []SourceBlock
	for b := range s.All() {
		blocks = append(blocks, b)
	}
	return blocks
}

// nestedInPre reports whether n has a <pre> ancestor. Such an element is
// part of the outer block's text, not a block of its own.
func nestedInPre(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Pre {
			return true
		}
	}
	return false
}

// insideProcessed reports whether n sits directly in a dual view container.
func insideProcessed(n *html.Node) bool {
	return n.Parent != nil && n.Parent.Type == html.ElementNode && page.HasAttr(n.Parent, ProcessedAttr)
}
