package introspection

import (
	"fmt"

	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// resolveRoot evaluates one top-level __schema/__type field against its
// requested selection, producing the plain map[string]any/[]any/scalar
// shape a PartitionResponse value expects.
func resolveRoot(s *schema.Schema, f *operation.Field) (any, error) {
	name := s.Field(f.Definition).Name
	switch name {
	case "__schema":
		return resolveObject(s, schemaNode{s: s}, f.Selection)
	case "__type":
		typeName, _ := f.Arguments["name"].(string)
		id, ok := s.TypeByName(typeName)
		if !ok {
			return nil, nil
		}
		return resolveObject(s, namedTypeRef(s, id), f.Selection)
	default:
		return nil, fmt.Errorf("introspection: unknown root field %q", name)
	}
}

// resolveObject walks a selection set against one introspection node,
// mirroring the selection-driven projection internal/grpcrt's
// decodeMessageValue uses for proto messages: IsTypename is special-cased
// per call site, every other child is dispatched by its schema field name.
func resolveObject(s *schema.Schema, node any, sel operation.SelectionSet) (map[string]any, error) {
	if node == nil {
		return nil, nil
	}
	if tr, ok := node.(*typeRef); ok && tr == nil {
		return nil, nil
	}
	out := make(map[string]any, len(sel))
	for _, child := range sel {
		if child.IsTypename {
			out[child.ResponseKey] = typeNameOf(node)
			continue
		}
		name := s.Field(child.Definition).Name
		v, err := resolveField(s, node, name, child)
		if err != nil {
			return nil, err
		}
		out[child.ResponseKey] = v
	}
	return out, nil
}

func typeNameOf(node any) string {
	switch node.(type) {
	case schemaNode:
		return "__Schema"
	case *typeRef:
		return "__Type"
	case fieldNode:
		return "__Field"
	case inputValueNode:
		return "__InputValue"
	case enumValueNode:
		return "__EnumValue"
	case directiveNode:
		return "__Directive"
	default:
		return ""
	}
}

func resolveField(s *schema.Schema, node any, name string, f *operation.Field) (any, error) {
	switch n := node.(type) {
	case schemaNode:
		return resolveSchemaField(s, n, name, f)
	case *typeRef:
		return resolveTypeField(s, n, name, f)
	case fieldNode:
		return resolveFieldField(s, n, name, f)
	case inputValueNode:
		return resolveInputValueField(s, n, name, f)
	case enumValueNode:
		return resolveEnumValueField(s, n, name, f)
	case directiveNode:
		return resolveDirectiveField(s, n, name, f)
	default:
		return nil, fmt.Errorf("introspection: unresolvable node %T", node)
	}
}

func resolveSchemaField(s *schema.Schema, n schemaNode, name string, f *operation.Field) (any, error) {
	switch name {
	case "description":
		return nil, nil
	case "types":
		ids := sortedTypeIDs(s)
		out := make([]any, 0, len(ids))
		for _, id := range ids {
			obj, err := resolveObject(s, namedTypeRef(s, id), f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "queryType":
		return resolveObject(s, namedTypeRef(s, s.QueryType), f.Selection)
	case "mutationType":
		if s.MutationType == schema.NoTypeID {
			return nil, nil
		}
		return resolveObject(s, namedTypeRef(s, s.MutationType), f.Selection)
	case "subscriptionType":
		if s.SubscriptionType == schema.NoTypeID {
			return nil, nil
		}
		return resolveObject(s, namedTypeRef(s, s.SubscriptionType), f.Selection)
	case "directives":
		dirs := builtinDirectives()
		out := make([]any, 0, len(dirs))
		for _, d := range dirs {
			obj, err := resolveObject(s, d, f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("introspection: unknown __Schema field %q", name)
	}
}

func resolveTypeField(s *schema.Schema, n *typeRef, name string, f *operation.Field) (any, error) {
	switch name {
	case "kind":
		return n.kind(), nil
	case "name":
		return derefString(n.name()), nil
	case "description":
		if def := n.def(); def != nil {
			return nonEmptyString(def.Description), nil
		}
		return nil, nil
	case "fields":
		def := n.def()
		if def == nil || (def.Kind != schema.KindObject && def.Kind != schema.KindInterface) {
			return nil, nil
		}
		includeDeprecated := boolArg(f.Arguments, "includeDeprecated", false)
		ids := visibleFields(s, def.Fields, includeDeprecated)
		out := make([]any, 0, len(ids))
		for _, id := range ids {
			obj, err := resolveObject(s, fieldNode{s: s, id: id}, f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "interfaces":
		def := n.def()
		if def == nil || (def.Kind != schema.KindObject && def.Kind != schema.KindInterface) {
			return nil, nil
		}
		out := make([]any, 0, len(def.Interfaces))
		for _, id := range def.Interfaces {
			obj, err := resolveObject(s, namedTypeRef(s, id), f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "possibleTypes":
		def := n.def()
		if def == nil || (def.Kind != schema.KindInterface && def.Kind != schema.KindUnion) {
			return nil, nil
		}
		out := make([]any, 0, len(def.PossibleTypes))
		for _, id := range def.PossibleTypes {
			obj, err := resolveObject(s, namedTypeRef(s, id), f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "enumValues":
		def := n.def()
		if def == nil || def.Kind != schema.KindEnum {
			return nil, nil
		}
		includeDeprecated := boolArg(f.Arguments, "includeDeprecated", false)
		ids := visibleEnumValues(s, def.EnumValues, includeDeprecated)
		out := make([]any, 0, len(ids))
		for _, id := range ids {
			obj, err := resolveObject(s, enumValueNode{s: s, id: id}, f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "inputFields":
		def := n.def()
		if def == nil || def.Kind != schema.KindInputObject {
			return nil, nil
		}
		// ArgumentDefinition carries no deprecation data, so includeDeprecated
		// has nothing to filter here; every input field is always returned.
		_ = boolArg(f.Arguments, "includeDeprecated", false)
		out := make([]any, 0, len(def.InputFields))
		for _, id := range def.InputFields {
			obj, err := resolveObject(s, inputValueNode{s: s, id: id}, f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "ofType":
		return resolveObject(s, n.ofType(), f.Selection)
	case "specifiedByURL":
		return nil, nil
	default:
		return nil, fmt.Errorf("introspection: unknown __Type field %q", name)
	}
}

func resolveFieldField(s *schema.Schema, n fieldNode, name string, f *operation.Field) (any, error) {
	fd := s.Field(n.id)
	switch name {
	case "name":
		return fd.Name, nil
	case "description":
		return nonEmptyString(fd.Description), nil
	case "args":
		out := make([]any, 0, len(fd.Arguments))
		for _, id := range fd.Arguments {
			obj, err := resolveObject(s, inputValueNode{s: s, id: id}, f.Selection)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	case "type":
		return resolveObject(s, &typeRef{s: s, w: fd.Type}, f.Selection)
	case "isDeprecated":
		return fd.Deprecated, nil
	case "deprecationReason":
		return nonEmptyString(fd.DeprecationReason), nil
	default:
		return nil, fmt.Errorf("introspection: unknown __Field field %q", name)
	}
}

func resolveInputValueField(s *schema.Schema, n inputValueNode, name string, f *operation.Field) (any, error) {
	arg := s.Argument(n.id)
	switch name {
	case "name":
		return arg.Name, nil
	case "description":
		return nonEmptyString(arg.Description), nil
	case "type":
		return resolveObject(s, &typeRef{s: s, w: arg.Type}, f.Selection)
	case "defaultValue":
		if arg.DefaultValue == nil {
			return nil, nil
		}
		return fmt.Sprintf("%v", arg.DefaultValue), nil
	case "isDeprecated":
		// ArgumentDefinition has no deprecation tracking; arguments and
		// input fields always report not deprecated.
		return false, nil
	case "deprecationReason":
		return nil, nil
	default:
		return nil, fmt.Errorf("introspection: unknown __InputValue field %q", name)
	}
}

func resolveEnumValueField(s *schema.Schema, n enumValueNode, name string, f *operation.Field) (any, error) {
	ev := s.EnumValue(n.id)
	switch name {
	case "name":
		return ev.Name, nil
	case "description":
		return nonEmptyString(ev.Description), nil
	case "isDeprecated":
		return ev.Deprecated, nil
	case "deprecationReason":
		return nonEmptyString(ev.DeprecationReason), nil
	default:
		return nil, fmt.Errorf("introspection: unknown __EnumValue field %q", name)
	}
}

func resolveDirectiveField(s *schema.Schema, n directiveNode, name string, f *operation.Field) (any, error) {
	switch name {
	case "name":
		return n.name, nil
	case "description":
		return nonEmptyString(n.description), nil
	case "isRepeatable":
		return n.isRepeatable, nil
	case "locations":
		out := make([]any, len(n.locations))
		for i, l := range n.locations {
			out[i] = l
		}
		return out, nil
	case "args":
		out := make([]any, 0, len(n.args))
		for _, a := range n.args {
			obj := map[string]any{}
			for _, child := range f.Selection {
				if child.IsTypename {
					obj[child.ResponseKey] = "__InputValue"
					continue
				}
				cn := s.Field(child.Definition).Name
				switch cn {
				case "name":
					obj[child.ResponseKey] = a.name
				case "type":
					obj[child.ResponseKey] = map[string]any{"kind": "SCALAR", "name": a.typ}
				default:
					obj[child.ResponseKey] = nil
				}
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("introspection: unknown __Directive field %q", name)
	}
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nonEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
