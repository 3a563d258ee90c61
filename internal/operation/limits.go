package operation

import (
	"fmt"

	"github.com/hanpama/gatewaycore/internal/language"
)

// Limits bounds the shape of a single operation independent of standard
// GraphQL validation: a document can be perfectly well-typed and still be
// an attempt to make the gateway do a ruinous amount of work. Checked after
// standard validation, directly over the pre-bind AST, so a cyclic
// fragment (which standard validation already rejects) can never make this
// walk loop forever.
type Limits struct {
	MaxDepth      int // deepest nested selection set, root fields at depth 1
	MaxHeight     int // total field selections anywhere in the operation
	MaxAliases    int // fields whose alias differs from their own name
	MaxRootFields int // fields directly under the operation's root
	MaxComplexity int // sum of each field's own cost plus its children's
}

// DefaultLimits is conservative enough to pass every legitimate query this
// gateway's own test suite sends, while still catching the pathological
// shapes (deeply nested cycles of fragments, walls of aliases) operation
// limits exist to catch. See DESIGN.md for how these numbers were picked.
var DefaultLimits = Limits{
	MaxDepth:      16,
	MaxHeight:     500,
	MaxAliases:    30,
	MaxRootFields: 20,
	MaxComplexity: 1000,
}

// checkLimits walks root (the operation's own top-level selection set)
// against limits, failing on the first limit crossed rather than collecting
// every violation: once one limit is blown the operation is rejected either
// way, and walking the rest of a possibly enormous tree just to report
// every count it exceeds buys nothing.
func checkLimits(doc *language.QueryDocument, root language.SelectionSet, limits Limits) error {
	rootFields := 0
	for _, sel := range root {
		if _, ok := sel.(*language.Field); ok {
			rootFields++
		}
	}
	if rootFields > limits.MaxRootFields {
		return fmt.Errorf("operation selects %d root fields, over the limit of %d", rootFields, limits.MaxRootFields)
	}

	w := &limitWalker{doc: doc, limits: limits}
	if err := w.walk(root, 1, map[string]bool{}); err != nil {
		return err
	}
	return nil
}

type limitWalker struct {
	doc        *language.QueryDocument
	limits     Limits
	height     int
	aliases    int
	complexity int
}

// walk mirrors binder.collect's recursion shape exactly, including its
// per-selection-set visitedFragments scoping (a fresh map each time a
// field's own child selection set is entered, shared across the inline
// fragments/spreads flattened into it): a fragment cycle is still rejected
// by standard validation before this ever runs, but scoping it the same way
// means this walk can never diverge from what bind() would actually expand.
func (w *limitWalker) walk(sel language.SelectionSet, depth int, visitedFragments map[string]bool) error {
	if depth > w.limits.MaxDepth {
		return fmt.Errorf("operation nests selections %d levels deep, over the limit of %d", depth, w.limits.MaxDepth)
	}
	for _, s := range sel {
		switch n := s.(type) {
		case *language.Field:
			w.height++
			if w.height > w.limits.MaxHeight {
				return fmt.Errorf("operation selects %d fields in total, over the limit of %d", w.height, w.limits.MaxHeight)
			}
			if n.Alias != "" && n.Alias != n.Name {
				w.aliases++
				if w.aliases > w.limits.MaxAliases {
					return fmt.Errorf("operation uses %d aliases, over the limit of %d", w.aliases, w.limits.MaxAliases)
				}
			}
			w.complexity++
			if w.complexity > w.limits.MaxComplexity {
				return fmt.Errorf("operation complexity %d, over the limit of %d", w.complexity, w.limits.MaxComplexity)
			}
			if len(n.SelectionSet) > 0 {
				if err := w.walk(n.SelectionSet, depth+1, map[string]bool{}); err != nil {
					return err
				}
			}
		case *language.InlineFragment:
			if err := w.walk(n.SelectionSet, depth, visitedFragments); err != nil {
				return err
			}
		case *language.FragmentSpread:
			if visitedFragments[n.Name] {
				continue
			}
			visitedFragments[n.Name] = true
			frag := w.doc.Fragments.ForName(n.Name)
			if frag == nil {
				continue // unknown fragment; standard validation already reports this
			}
			if err := w.walk(frag.SelectionSet, depth, visitedFragments); err != nil {
				return err
			}
		}
	}
	return nil
}
