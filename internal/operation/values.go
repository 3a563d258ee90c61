package operation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanpama/gatewaycore/internal/language"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// coerceVariableValues coerces request variables according to the
// operation's variable definitions against the arena schema.Wrapping
// representation.
func coerceVariableValues(s *schema.Schema, op *language.OperationDefinition, variableValues map[string]any) (map[string]any, error) {
	if variableValues == nil {
		variableValues = map[string]any{}
	}
	coerced := make(map[string]any, len(op.VariableDefinitions))
	for _, varDef := range op.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type

		val, ok := variableValues[name]
		if !ok {
			if v2, ok2 := variableValues[strings.TrimPrefix(name, "$")]; ok2 {
				val, ok = v2, true
			}
		}
		if !ok {
			if varDef.DefaultValue != nil {
				coerced[name] = astValueToGo(varDef.DefaultValue)
				continue
			}
			if t.NonNull {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			}
			continue
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}

		w, err := wrappingFromAST(s, t)
		if err != nil {
			return nil, fmt.Errorf("variable $%s: %w", name, err)
		}
		cv, err := coerceValue(s, val, w)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %w", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

func wrappingFromAST(s *schema.Schema, t *language.Type) (schema.Wrapping, error) {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		w, err := wrappingFromAST(s, &inner)
		if err != nil {
			return schema.Wrapping{}, err
		}
		return schema.NonNull(w), nil
	}
	if t.Elem != nil {
		w, err := wrappingFromAST(s, t.Elem)
		if err != nil {
			return schema.Wrapping{}, err
		}
		return schema.ListOf(w), nil
	}
	id, ok := s.TypeByName(t.NamedType)
	if !ok {
		return schema.Wrapping{}, fmt.Errorf("unknown type %q", t.NamedType)
	}
	return schema.Named(id), nil
}

func valueFromASTWithVars(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	if value.Kind == language.Variable {
		name := value.Raw
		if v, ok := variableValues[name]; ok {
			return v
		}
		if v, ok := variableValues[strings.TrimPrefix(name, "$")]; ok {
			return v
		}
		return nil
	}
	return astValueToGo(value)
}

func astValueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}

// coerceValue coerces a raw value to targetType against the arena
// Wrapping representation, handling Non-Null, List, enum, and input
// object types in addition to the leaf scalars.
func coerceValue(s *schema.Schema, value any, targetType schema.Wrapping) (any, error) {
	if targetType.IsNonNull() {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(s, value, targetType.Unwrap())
	}
	if value == nil {
		return nil, nil
	}
	if targetType.IsList() {
		return coerceListValue(s, value, targetType)
	}

	named := s.Type(targetType.NamedType())
	switch named.Kind {
	case schema.KindScalar:
		switch named.Name {
		case "Int":
			return coerceToInt(value)
		case "Float":
			return coerceToFloat(value)
		case "String":
			return coerceToString(value)
		case "Boolean":
			return coerceToBoolean(value)
		case "ID":
			return coerceToID(value)
		default:
			return value, nil
		}
	case schema.KindEnum:
		sv, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, named.Name)
		}
		for _, evid := range named.EnumValues {
			if s.EnumValues[evid].Name == sv {
				return sv, nil
			}
		}
		return nil, fmt.Errorf("value %q is not a member of enum %s", sv, named.Name)
	case schema.KindInputObject:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v (%T) to input object %s", value, value, named.Name)
		}
		out := make(map[string]any, len(named.InputFields))
		for _, fid := range named.InputFields {
			f := s.Argument(fid)
			raw, present := m[f.Name]
			if !present {
				if f.DefaultValue != nil {
					out[f.Name] = f.DefaultValue
					continue
				}
				if f.Type.IsNonNull() {
					return nil, fmt.Errorf("input field %q of required type was not provided", f.Name)
				}
				continue
			}
			cv, err := coerceValue(s, raw, f.Type)
			if err != nil {
				return nil, fmt.Errorf("input field %q: %w", f.Name, err)
			}
			out[f.Name] = cv
		}
		return out, nil
	default:
		return value, nil
	}
}

func coerceListValue(s *schema.Schema, value any, listType schema.Wrapping) (any, error) {
	inner := listType.Unwrap()
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, item := range slice {
			cv, err := coerceValue(s, item, inner)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	cv, err := coerceValue(s, value, inner)
	if err != nil {
		return nil, err
	}
	return []any{cv}, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case float32:
		return int(v), nil
	case string:
		if iv, err := strconv.Atoi(v); err == nil {
			return iv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return fmt.Sprintf("%v", value), nil
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}
