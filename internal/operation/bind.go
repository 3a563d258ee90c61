package operation

import (
	"fmt"

	"github.com/hanpama/gatewaycore/internal/language"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// binder walks a query document's selection sets against the arena schema,
// binding each selection to a schema.FieldID instead of leaving it as a
// bag of *language.Field nodes, and coercing arguments eagerly instead of
// at resolve time.
type binder struct {
	schema    *schema.Schema
	doc       *language.QueryDocument
	variables map[string]any
}

func (b *binder) bind(parent schema.TypeID, sel language.SelectionSet) (SelectionSet, error) {
	grouped := &groupedFields{index: map[string]int{}}
	visited := map[string]bool{}
	if err := b.collect(parent, sel, grouped, visited); err != nil {
		return nil, err
	}

	out := make(SelectionSet, 0, len(grouped.order))
	for _, key := range grouped.order {
		group := grouped.byKey[key]
		first := group[0]

		if first.Name == "__typename" {
			out = append(out, &Field{ResponseKey: key, IsTypename: true, ParentType: parent})
			continue
		}

		fid, ok := b.schema.FieldByName(parent, first.Name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q on type %q", first.Name, b.schema.Type(parent).Name)
		}
		fd := b.schema.Field(fid)

		args, err := b.coerceArguments(fd, first.Arguments)
		if err != nil {
			return nil, err
		}

		var children SelectionSet
		if isComposite(b.schema, fd.Type.NamedType()) {
			var merged language.SelectionSet
			for _, f := range group {
				merged = append(merged, f.SelectionSet...)
			}
			target := fd.Type.NamedType()
			children, err = b.bind(target, merged)
			if err != nil {
				return nil, err
			}
		}

		out = append(out, &Field{
			ResponseKey: key,
			Definition:  fid,
			Arguments:   args,
			Selection:   children,
			ParentType:  parent,
		})
	}
	return out, nil
}

type groupedFields struct {
	order []string
	byKey map[string][]*language.Field
	index map[string]int
}

func (g *groupedFields) add(key string, f *language.Field) {
	if g.byKey == nil {
		g.byKey = map[string][]*language.Field{}
	}
	if _, exists := g.index[key]; !exists {
		g.index[key] = len(g.order)
		g.order = append(g.order, key)
	}
	g.byKey[key] = append(g.byKey[key], f)
}

func (b *binder) collect(parent schema.TypeID, sel language.SelectionSet, out *groupedFields, visitedFragments map[string]bool) error {
	parentDef := b.schema.Type(parent)
	for _, selection := range sel {
		switch s := selection.(type) {
		case *language.Field:
			if !b.shouldInclude(s.Directives) {
				continue
			}
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			out.add(key, s)

		case *language.InlineFragment:
			if !b.shouldInclude(s.Directives) {
				continue
			}
			if !b.typeConditionMatches(parentDef, s.TypeCondition) {
				continue
			}
			if err := b.collect(parent, s.SelectionSet, out, visitedFragments); err != nil {
				return err
			}

		case *language.FragmentSpread:
			if !b.shouldInclude(s.Directives) {
				continue
			}
			if visitedFragments[s.Name] {
				continue
			}
			visitedFragments[s.Name] = true
			frag := b.doc.Fragments.ForName(s.Name)
			if frag == nil {
				return fmt.Errorf("unknown fragment %q", s.Name)
			}
			if !b.shouldInclude(frag.Directives) {
				continue
			}
			if !b.typeConditionMatches(parentDef, frag.TypeCondition) {
				continue
			}
			if err := b.collect(parent, frag.SelectionSet, out, visitedFragments); err != nil {
				return err
			}
		}
	}
	return nil
}

// typeConditionMatches reports whether a fragment/inline-fragment type
// condition applies to parent: an exact name match, or parent implementing
// the named interface, or parent being a member of the named union.
func (b *binder) typeConditionMatches(parent *schema.TypeDefinition, condition string) bool {
	if condition == "" || condition == parent.Name {
		return true
	}
	condID, ok := b.schema.TypeByName(condition)
	if !ok {
		return false
	}
	condDef := b.schema.Type(condID)
	switch condDef.Kind {
	case schema.KindInterface, schema.KindUnion:
		for _, pt := range condDef.PossibleTypes {
			if pt == parent.ID {
				return true
			}
		}
	}
	for _, iface := range parent.Interfaces {
		if iface == condID {
			return true
		}
	}
	return false
}

func (b *binder) shouldInclude(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, err := b.directiveBoolArg(skip, "if"); err == nil && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, err := b.directiveBoolArg(include, "if"); err == nil && !v {
			return false
		}
	}
	return true
}

func (b *binder) directiveBoolArg(d *language.Directive, name string) (bool, error) {
	arg := d.Arguments.ForName(name)
	if arg == nil {
		return false, fmt.Errorf("missing argument %q", name)
	}
	v := valueFromASTWithVars(arg.Value, b.variables)
	bv, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q is not a boolean", name)
	}
	return bv, nil
}

func (b *binder) coerceArguments(fd *schema.FieldDefinition, args language.ArgumentList) (map[string]any, error) {
	coerced := make(map[string]any, len(fd.Arguments))
	for _, a := range args {
		argID, ok := findArgument(b.schema, fd, a.Name)
		if !ok {
			continue
		}
		argDef := b.schema.Argument(argID)
		raw := valueFromASTWithVars(a.Value, b.variables)
		v, err := coerceValue(b.schema, raw, argDef.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		coerced[a.Name] = v
	}
	for _, argID := range fd.Arguments {
		argDef := b.schema.Argument(argID)
		if _, ok := coerced[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			coerced[argDef.Name] = argDef.DefaultValue
		} else if argDef.Type.IsNonNull() {
			return nil, fmt.Errorf("argument %q of required type was not provided", argDef.Name)
		}
	}
	return coerced, nil
}

// isComposite reports whether a named type carries a sub-selection
// (object, interface, or union) as opposed to a leaf (scalar or enum).
func isComposite(s *schema.Schema, id schema.TypeID) bool {
	switch s.Type(id).Kind {
	case schema.KindObject, schema.KindInterface, schema.KindUnion:
		return true
	default:
		return false
	}
}

func findArgument(s *schema.Schema, fd *schema.FieldDefinition, name string) (schema.ArgumentID, bool) {
	for _, id := range fd.Arguments {
		if s.Argument(id).Name == name {
			return id, true
		}
	}
	return 0, false
}
