package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/language"
)

// SubgraphInput is one service's SDL plus its transport coordinates, the
// unit BuildSupergraph composes over: one network-separated subgraph
// rather than one in-process package.
type SubgraphInput struct {
	Name    string
	URL     string
	Kind    SubgraphKind
	SDL     string
	Headers []HeaderRule
}

// mergedType accumulates one named type's definition across every
// subgraph that contributes to it, before the arena is frozen.
type mergedType struct {
	name         string
	kind         TypeKind
	description  string
	fields       map[string]*mergedField
	fieldOrder   []string
	interfaces   map[string]bool
	possible     map[string]bool
	enumValues   map[string]*ast.EnumValueDefinition
	inputValues  map[string]*ast.FieldDefinition
	inaccessible bool
	keys         []pendingKey
	resolvableIn map[string]bool
}

type pendingKey struct {
	subgraph   string
	fieldsExpr string
	resolvable bool
}

type mergedField struct {
	name         string
	typ          *ast.Type
	description  string
	args         map[string]*ast.ArgumentDefinition
	argOrder     []string
	shareable    bool
	inaccessible bool
	perSubgraph  map[string]*fieldSubgraphInfo
	directives   []DirectiveUse
}

type fieldSubgraphInfo struct {
	external bool
	requires string
	provides string
	override string // name of subgraph this one overrides, "" if none
}

// BuildSupergraph composes a set of subgraph SDL documents into one
// arena-indexed Schema, interpreting the standard federation directive
// set (@key, @requires, @provides, @external, @shareable, @override,
// @inaccessible). Subgraphs are processed in sorted-name order and every
// merged collection is rendered back out in sorted order, so two builds
// from the same inputs always produce identical arena IDs.
func BuildSupergraph(inputs []SubgraphInput) (*Schema, error) {
	sorted := make([]SubgraphInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var violations gqlerror.List
	types := map[string]*mergedType{}
	var typeOrder []string
	queryType, mutationType, subscriptionType := "Query", "Mutation", "Subscription"

	ensureType := func(name string, kind TypeKind) *mergedType {
		mt, ok := types[name]
		if !ok {
			mt = &mergedType{
				name:         name,
				kind:         kind,
				fields:       map[string]*mergedField{},
				interfaces:   map[string]bool{},
				possible:     map[string]bool{},
				enumValues:   map[string]*ast.EnumValueDefinition{},
				inputValues:  map[string]*ast.FieldDefinition{},
				resolvableIn: map[string]bool{},
			}
			types[name] = mt
			typeOrder = append(typeOrder, name)
		}
		return mt
	}

	for _, in := range sorted {
		doc, err := language.ParseSchema(in.Name, in.SDL)
		if err != nil {
			violations = append(violations, gqlerror.New(gqlerror.CodeBadRequest, "subgraph %q: %v", in.Name, err))
			continue
		}
		for _, sd := range doc.Schema {
			for _, op := range sd.OperationTypes {
				switch op.Operation {
				case language.Query:
					queryType = op.Type
				case language.Mutation:
					mutationType = op.Type
				case language.Subscription:
					subscriptionType = op.Type
				}
			}
		}
		for _, def := range doc.Definitions {
			kind, ok := astKind(def.Kind)
			if !ok {
				continue
			}
			mt := ensureType(def.Name, kind)
			if mt.description == "" {
				mt.description = def.Description
			}
			for _, iface := range def.Interfaces {
				mt.interfaces[iface] = true
			}
			for _, t := range def.Types {
				mt.possible[t] = true
			}
			for _, ev := range def.EnumValues {
				if _, exists := mt.enumValues[ev.Name]; !exists {
					mt.enumValues[ev.Name] = ev
				}
			}
			if hasDirective(def.Directives, "inaccessible") {
				mt.inaccessible = true
			}
			if keyDirs := findDirectives(def.Directives, "key"); len(keyDirs) > 0 {
				for _, kd := range keyDirs {
					fieldsExpr, _ := directiveArgString(kd, "fields")
					resolvable := true
					if b, ok := directiveArgBool(kd, "resolvable"); ok {
						resolvable = b
					}
					mt.keys = append(mt.keys, pendingKey{subgraph: in.Name, fieldsExpr: fieldsExpr, resolvable: resolvable})
					if resolvable {
						mt.resolvableIn[in.Name] = true
					}
				}
			}

			if kind == KindInputObject {
				for _, f := range def.Fields {
					if _, exists := mt.inputValues[f.Name]; !exists {
						mt.inputValues[f.Name] = f
					}
				}
				continue
			}

			for _, f := range def.Fields {
				mf, exists := mt.fields[f.Name]
				if !exists {
					mf = &mergedField{
						name:        f.Name,
						typ:         f.Type,
						description: f.Description,
						args:        map[string]*ast.ArgumentDefinition{},
						perSubgraph: map[string]*fieldSubgraphInfo{},
					}
					mt.fields[f.Name] = mf
					mt.fieldOrder = append(mt.fieldOrder, f.Name)
				}
				for _, a := range f.Arguments {
					if _, exists := mf.args[a.Name]; !exists {
						mf.args[a.Name] = a
						mf.argOrder = append(mf.argOrder, a.Name)
					}
				}
				info := &fieldSubgraphInfo{}
				if hasDirective(f.Directives, "external") {
					info.external = true
				}
				if hasDirective(f.Directives, "shareable") {
					mf.shareable = true
				}
				if hasDirective(f.Directives, "inaccessible") {
					mf.inaccessible = true
				}
				if rd := findDirective(f.Directives, "requires"); rd != nil {
					info.requires, _ = directiveArgString(rd, "fields")
				}
				if pd := findDirective(f.Directives, "provides"); pd != nil {
					info.provides, _ = directiveArgString(pd, "fields")
				}
				if od := findDirective(f.Directives, "override"); od != nil {
					info.override, _ = directiveArgString(od, "from")
				}
				for _, d := range f.Directives {
					if federationDirectiveNames[d.Name] {
						continue
					}
					if passthroughDirectiveNames[d.Name] {
						mf.directives = append(mf.directives, DirectiveUse{Name: d.Name, Args: directiveArgsAsMap(d)})
					}
				}
				mf.perSubgraph[in.Name] = info
			}
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}

	sort.Strings(typeOrder)

	s := &Schema{QueryType: NoTypeID, MutationType: NoTypeID, SubscriptionType: NoTypeID}

	// Pass 0: register subgraphs.
	for _, in := range sorted {
		s.Subgraphs = append(s.Subgraphs, Subgraph{
			ID:      SubgraphID(len(s.Subgraphs)),
			Name:    in.Name,
			URL:     in.URL,
			Kind:    in.Kind,
			Headers: in.Headers,
		})
	}
	subgraphByName := map[string]SubgraphID{}
	for _, sg := range s.Subgraphs {
		subgraphByName[sg.Name] = sg.ID
	}

	// Pass 1: register builtin scalars, then every merged type name, so
	// field type references can resolve to a TypeID regardless of
	// declaration order.
	typeIDByName := map[string]TypeID{}
	registerType := func(name string, kind TypeKind, description string) TypeID {
		id := TypeID(len(s.Types))
		s.Types = append(s.Types, TypeDefinition{ID: id, Name: name, Kind: kind, Description: description})
		typeIDByName[name] = id
		return id
	}
	for _, b := range builtinScalarNames {
		if _, exists := types[b.Name]; !exists {
			registerType(b.Name, KindScalar, b.Description)
		}
	}
	for _, name := range typeOrder {
		mt := types[name]
		registerType(name, mt.kind, mt.description)
	}

	toWrapping := func(t *ast.Type) (Wrapping, error) {
		return buildWrapping(t, typeIDByName)
	}

	// Pass 2: fill in each type's structural fields now that every name
	// resolves, in sorted order for fields/interfaces/enum values/inputs.
	for _, name := range typeOrder {
		mt := types[name]
		tid := typeIDByName[name]
		td := &s.Types[tid]
		td.Inaccessible = mt.inaccessible

		ifaceNames := make([]string, 0, len(mt.interfaces))
		for n := range mt.interfaces {
			ifaceNames = append(ifaceNames, n)
		}
		sort.Strings(ifaceNames)
		for _, n := range ifaceNames {
			if id, ok := typeIDByName[n]; ok {
				td.Interfaces = append(td.Interfaces, id)
			}
		}

		possibleNames := make([]string, 0, len(mt.possible))
		for n := range mt.possible {
			possibleNames = append(possibleNames, n)
		}
		sort.Strings(possibleNames)
		for _, n := range possibleNames {
			if id, ok := typeIDByName[n]; ok {
				td.PossibleTypes = append(td.PossibleTypes, id)
			}
		}

		if mt.kind == KindObject || mt.kind == KindInterface {
			for _, ifid := range td.Interfaces {
				iface := &s.Types[ifid]
				iface.PossibleTypes = append(iface.PossibleTypes, tid)
			}
		}

		if mt.kind == KindEnum {
			evNames := make([]string, 0, len(mt.enumValues))
			for n := range mt.enumValues {
				evNames = append(evNames, n)
			}
			sort.Strings(evNames)
			for _, n := range evNames {
				ev := mt.enumValues[n]
				id := EnumValueID(len(s.EnumValues))
				s.EnumValues = append(s.EnumValues, EnumValueDefinition{ID: id, Name: ev.Name, Description: ev.Description})
				td.EnumValues = append(td.EnumValues, id)
			}
			continue
		}

		if mt.kind == KindInputObject {
			ivNames := make([]string, 0, len(mt.inputValues))
			for n := range mt.inputValues {
				ivNames = append(ivNames, n)
			}
			sort.Strings(ivNames)
			for _, n := range ivNames {
				iv := mt.inputValues[n]
				w, err := toWrapping(iv.Type)
				if err != nil {
					violations = append(violations, gqlerror.New(gqlerror.CodeBadRequest, "%s.%s: %v", name, n, err))
					continue
				}
				id := ArgumentID(len(s.Arguments))
				s.Arguments = append(s.Arguments, ArgumentDefinition{ID: id, Name: iv.Name, Type: w, Description: iv.Description})
				td.InputFields = append(td.InputFields, id)
			}
			continue
		}

		if mt.kind != KindObject && mt.kind != KindInterface {
			continue
		}

		sort.Strings(mt.fieldOrder)
		for _, fn := range mt.fieldOrder {
			mf := mt.fields[fn]
			w, err := toWrapping(mf.typ)
			if err != nil {
				violations = append(violations, gqlerror.New(gqlerror.CodeBadRequest, "%s.%s: %v", name, fn, err))
				continue
			}
			fid := FieldID(len(s.Fields))
			fd := FieldDefinition{
				ID:           fid,
				Name:         mf.name,
				Parent:       tid,
				Type:         w,
				Description:  mf.description,
				Shareable:    mf.shareable,
				Inaccessible: mf.inaccessible,
				Directives:   mf.directives,
			}
			sort.Strings(mf.argOrder)
			for _, an := range mf.argOrder {
				a := mf.args[an]
				aw, err := toWrapping(a.Type)
				if err != nil {
					violations = append(violations, gqlerror.New(gqlerror.CodeBadRequest, "%s.%s(%s): %v", name, fn, an, err))
					continue
				}
				aid := ArgumentID(len(s.Arguments))
				s.Arguments = append(s.Arguments, ArgumentDefinition{ID: aid, Name: a.Name, Type: aw, Description: a.Description})
				fd.Arguments = append(fd.Arguments, aid)
			}
			s.Fields = append(s.Fields, fd)
			td.Fields = append(td.Fields, fid)

			subNames := make([]string, 0, len(mf.perSubgraph))
			for sn := range mf.perSubgraph {
				subNames = append(subNames, sn)
			}
			sort.Strings(subNames)
			for _, sn := range subNames {
				info := mf.perSubgraph[sn]
				if info.external {
					continue
				}
				sgID, ok := subgraphByName[sn]
				if !ok {
					continue
				}
				rid := ResolverID(len(s.Resolvers))
				r := ResolverDefinition{ID: rid, Field: fid, Subgraph: sgID, Kind: ResolverGraphQL}
				s.Resolvers = append(s.Resolvers, r)
				s.Fields[fid].Resolvers = append(s.Fields[fid].Resolvers, rid)
			}
		}

		// @requires/@provides may name a sibling field that sorts after the
		// field carrying them, so they are parsed once every field exists.
		for _, fid := range td.Fields {
			for _, rid := range s.Fields[fid].Resolvers {
				info := mt.fields[s.Fields[fid].Name].perSubgraph[s.Subgraphs[s.Resolvers[rid].Subgraph].Name]
				s.Resolvers[rid].Requires = parseFieldSet(info.requires, td, s)
				s.Resolvers[rid].Provides = parseFieldSet(info.provides, td, s)
			}
		}

		// Keys: one Key + one entity-lookup ResolverDefinition per
		// (subgraph, key) pair, letting the solver reach this type by
		// representation in subgraphs that don't own every field.
		for _, pk := range mt.keys {
			sgID, ok := subgraphByName[pk.subgraph]
			if !ok {
				continue
			}
			kid := KeyID(len(s.Keys))
			fs := parseFieldSet(pk.fieldsExpr, td, s)
			s.Keys = append(s.Keys, Key{ID: kid, ParentType: tid, Subgraph: sgID, Fields: fs, Resolvable: pk.resolvable})
			td.Keys = append(td.Keys, kid)
			if pk.resolvable {
				for _, fid := range td.Fields {
					fname := s.Fields[fid].Name
					if info, ok := mt.fields[fname].perSubgraph[pk.subgraph]; ok && !info.external {
						continue // already has a direct GraphQL resolver from this subgraph
					}
					rid := ResolverID(len(s.Resolvers))
					s.Resolvers = append(s.Resolvers, ResolverDefinition{
						ID: rid, Field: fid, Subgraph: sgID, Kind: ResolverEntityLookup, Key: kid,
					})
					s.Fields[fid].Resolvers = append(s.Fields[fid].Resolvers, rid)
				}
			}
		}

		resolvableNames := make([]string, 0, len(mt.resolvableIn))
		for n := range mt.resolvableIn {
			resolvableNames = append(resolvableNames, n)
		}
		sort.Strings(resolvableNames)
		for _, n := range resolvableNames {
			if id, ok := subgraphByName[n]; ok {
				td.OnlyResolvableIn = append(td.OnlyResolvableIn, id)
			}
		}
	}

	// Pass 3: apply @override — mark the overridden subgraph's resolver
	// unusable so the solver never offers it as a candidate.
	for _, name := range typeOrder {
		mt := types[name]
		for _, fn := range mt.fieldOrder {
			mf := mt.fields[fn]
			for _, info := range mf.perSubgraph {
				if info.override == "" {
					continue
				}
				fid, ok := s.FieldByName(typeIDByName[name], fn)
				if !ok {
					continue
				}
				for _, rid := range s.Fields[fid].Resolvers {
					r := &s.Resolvers[rid]
					if s.Subgraphs[r.Subgraph].Name == info.override {
						r.Overridden = true
					}
				}
			}
		}
	}

	if queryType != "" {
		if id, ok := typeIDByName[queryType]; ok {
			s.QueryType = id
		}
	}
	if mutationType != "" {
		if id, ok := typeIDByName[mutationType]; ok {
			s.MutationType = id
		}
	}
	if subscriptionType != "" {
		if id, ok := typeIDByName[subscriptionType]; ok {
			s.SubscriptionType = id
		}
	}

	s.buildIndexes()

	if len(violations) > 0 {
		return nil, violations
	}
	if s.QueryType == NoTypeID {
		return nil, gqlerror.List{gqlerror.New(gqlerror.CodeBadRequest, "supergraph has no Query root type")}
	}
	return s, nil
}

func astKind(k ast.DefinitionKind) (TypeKind, bool) {
	switch k {
	case ast.Object:
		return KindObject, true
	case ast.Interface:
		return KindInterface, true
	case ast.Union:
		return KindUnion, true
	case ast.Scalar:
		return KindScalar, true
	case ast.Enum:
		return KindEnum, true
	case ast.InputObject:
		return KindInputObject, true
	default:
		return 0, false
	}
}

func buildWrapping(t *ast.Type, byName map[string]TypeID) (Wrapping, error) {
	return buildWrappingInner(t, nil, byName)
}

func buildWrappingInner(t *ast.Type, acc []WrapKind, byName map[string]TypeID) (Wrapping, error) {
	if t.NonNull {
		acc = append(acc, WrapNonNull)
		inner := *t
		inner.NonNull = false
		return buildWrappingInner(&inner, acc, byName)
	}
	if t.Elem != nil {
		acc = append(acc, WrapList)
		return buildWrappingInner(t.Elem, acc, byName)
	}
	id, ok := byName[t.NamedType]
	if !ok {
		return Wrapping{}, fmt.Errorf("unknown type %q", t.NamedType)
	}
	return Wrapping{Layers: acc, Named: id}, nil
}

func hasDirective(list ast.DirectiveList, name string) bool {
	return findDirective(list, name) != nil
}

func findDirective(list ast.DirectiveList, name string) *ast.Directive {
	for _, d := range list {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func findDirectives(list ast.DirectiveList, name string) []*ast.Directive {
	var out []*ast.Directive
	for _, d := range list {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

func directiveArgString(d *ast.Directive, arg string) (string, bool) {
	a := d.Arguments.ForName(arg)
	if a == nil || a.Value == nil {
		return "", false
	}
	return a.Value.Raw, true
}

func directiveArgBool(d *ast.Directive, arg string) (bool, bool) {
	a := d.Arguments.ForName(arg)
	if a == nil || a.Value == nil {
		return false, false
	}
	return a.Value.Raw == "true", true
}

func directiveArgsAsMap(d *ast.Directive) map[string]any {
	if len(d.Arguments) == 0 {
		return nil
	}
	m := make(map[string]any, len(d.Arguments))
	for _, a := range d.Arguments {
		if a.Value != nil {
			m[a.Name] = astValueToGo(a.Value)
		}
	}
	return m
}

// astValueToGo converts a directive argument literal into a plain Go value,
// recursing through lists and input objects so a directive like
// @requiresScopes(scopes: [["read"], ["write"]]) carries real [][]string
// shaped data instead of its source text.
func astValueToGo(value *ast.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case ast.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case ast.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return value.Raw
	case ast.BooleanValue:
		return value.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case ast.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return value.Raw
	}
}

// parseFieldSet turns a `@key(fields: "a b")`-style flat selection string
// into a FieldSet against parent's own field arena entries. Compound
// nested selections ("a { b }") are flattened: braces are dropped and every
// name, nested or not, is looked up on parent itself, so no item ever has
// Children.
func parseFieldSet(expr string, parent *TypeDefinition, s *Schema) FieldSet {
	fields := strings.Fields(strings.NewReplacer("{", " ", "}", " ").Replace(expr))
	var fs FieldSet
	for _, name := range fields {
		for _, fid := range parent.Fields {
			if s.Fields[fid].Name == name {
				fs = append(fs, FieldSetItem{Field: fid})
				break
			}
		}
	}
	return fs
}
