package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema, skipping builtin scalars, with
// type names sorted lexicographically for deterministic output.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	renderSchemaDefinition(&b, s)

	names := make([]string, 0, len(s.Types))
	byName := map[string]TypeID{}
	for _, t := range s.Types {
		if isBuiltinScalar(t.Name) {
			continue
		}
		names = append(names, t.Name)
		byName[t.Name] = t.ID
	}
	sort.Strings(names)

	for _, name := range names {
		t := s.Type(byName[name])
		switch t.Kind {
		case KindScalar:
			renderScalar(&b, s, t)
		case KindEnum:
			renderEnum(&b, s, t)
		case KindInputObject:
			renderInputObject(&b, s, t)
		case KindObject:
			renderObject(&b, s, t)
		case KindInterface:
			renderInterface(&b, s, t)
		case KindUnion:
			renderUnion(&b, s, t)
		}
	}

	out := strings.TrimRight(b.String(), "\n") + "\n"
	return out
}

// renderSchemaDefinition writes an explicit `schema { ... }` block naming
// the root operation types, rather than relying on the "Query"/"Mutation"/
// "Subscription" naming convention a consumer of this SDL (gqlparser's
// schema loader, used by ASTSchema) would otherwise fall back to.
func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	if s.QueryType == NoTypeID {
		return
	}
	b.WriteString("schema {\n  query: ")
	b.WriteString(s.Type(s.QueryType).Name)
	b.WriteString("\n")
	if s.MutationType != NoTypeID {
		b.WriteString("  mutation: ")
		b.WriteString(s.Type(s.MutationType).Name)
		b.WriteString("\n")
	}
	if s.SubscriptionType != NoTypeID {
		b.WriteString("  subscription: ")
		b.WriteString(s.Type(s.SubscriptionType).Name)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func isBuiltinScalar(name string) bool {
	for _, b := range builtinScalarNames {
		if b.Name == name {
			return true
		}
	}
	return false
}

func renderDescription(b *strings.Builder, desc string) {
	if desc == "" {
		return
	}
	b.WriteString("\"\"\"\n")
	b.WriteString(strings.ReplaceAll(desc, "\"", "\\\""))
	b.WriteString("\n\"\"\"\n")
}

func renderScalar(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("scalar ")
	b.WriteString(t.Name)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("enum ")
	b.WriteString(t.Name)
	b.WriteString(" {\n")
	for _, evid := range t.EnumValues {
		ev := s.EnumValues[evid]
		renderDescription(b, ev.Description)
		b.WriteString("  ")
		b.WriteString(ev.Name)
		writeDeprecated(b, ev.Deprecated, ev.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("input ")
	b.WriteString(t.Name)
	b.WriteString(" {\n")
	for _, aid := range t.InputFields {
		a := s.Argument(aid)
		renderDescription(b, a.Description)
		b.WriteString("  ")
		b.WriteString(a.Name)
		b.WriteString(": ")
		b.WriteString(renderWrapping(s, a.Type))
		if a.DefaultValue != nil {
			b.WriteString(" = ")
			b.WriteString(renderValue(a.DefaultValue))
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderObject(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("type ")
	b.WriteString(t.Name)
	renderImplements(b, s, t)
	b.WriteString(" {\n")
	for _, fid := range t.Fields {
		renderField(b, s, s.Field(fid))
	}
	b.WriteString("}\n\n")
}

func renderInterface(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("interface ")
	b.WriteString(t.Name)
	renderImplements(b, s, t)
	b.WriteString(" {\n")
	for _, fid := range t.Fields {
		renderField(b, s, s.Field(fid))
	}
	b.WriteString("}\n\n")
}

func renderImplements(b *strings.Builder, s *Schema, t *TypeDefinition) {
	if len(t.Interfaces) == 0 {
		return
	}
	b.WriteString(" implements ")
	for i, ifid := range t.Interfaces {
		if i > 0 {
			b.WriteString(" & ")
		}
		b.WriteString(s.Type(ifid).Name)
	}
}

func renderUnion(b *strings.Builder, s *Schema, t *TypeDefinition) {
	renderDescription(b, t.Description)
	b.WriteString("union ")
	b.WriteString(t.Name)
	b.WriteString(" = ")
	for i, ptid := range t.PossibleTypes {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(s.Type(ptid).Name)
	}
	b.WriteString("\n\n")
}

func renderField(b *strings.Builder, s *Schema, f *FieldDefinition) {
	renderDescription(b, f.Description)
	b.WriteString("  ")
	b.WriteString(f.Name)
	if len(f.Arguments) > 0 {
		b.WriteString("(")
		for i, aid := range f.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			a := s.Argument(aid)
			b.WriteString(a.Name)
			b.WriteString(": ")
			b.WriteString(renderWrapping(s, a.Type))
			if a.DefaultValue != nil {
				b.WriteString(" = ")
				b.WriteString(renderValue(a.DefaultValue))
			}
		}
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(renderWrapping(s, f.Type))
	writeDeprecated(b, f.Deprecated, f.DeprecationReason)
	b.WriteString("\n")
}

func writeDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: \"")
		b.WriteString(reason)
		b.WriteString("\")")
	}
}

func renderWrapping(s *Schema, w Wrapping) string {
	var b strings.Builder
	for _, l := range w.Layers {
		if l == WrapList {
			b.WriteString("[")
		}
	}
	b.WriteString(s.Type(w.Named).Name)
	for i := len(w.Layers) - 1; i >= 0; i-- {
		switch w.Layers[i] {
		case WrapList:
			b.WriteString("]")
		case WrapNonNull:
			b.WriteString("!")
		}
	}
	return b.String()
}

func renderValue(value any) string {
	if value == nil {
		return "null"
	}
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, renderValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(v))
		for k, val := range v {
			parts = append(parts, k+": "+renderValue(val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
