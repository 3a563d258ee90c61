package grpcrt

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/gqlerror"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
)

// Runtime implements executor.PartitionRuntime for Virtual/Extension
// subgraphs: every field a partition resolves is served by gRPC. A batch
// method gets one call whose request carries one `batches` entry per
// representation, the same repeated-field RPC shape the registry already
// builds resolver/loader methods around; a single method gets one call per
// representation.
//
// A root partition (no entry key) resolves each of its fields through the
// registry's resolver methods (Query/Mutation are the objectType), since
// there is exactly one representation (the empty root map) to batch over.
// A partition entered through an entity lookup resolves each field through
// the registry's loader methods, batched one entry per representation —
// the representation's own key fields stand in for what the pre-federation
// registry called the parent "source".
type Runtime struct {
	schema    *schema.Schema
	reg       Registry
	transport Transport
}

var _ executor.PartitionRuntime = (*Runtime)(nil)

func NewRuntime(s *schema.Schema, registry Registry, transport Transport) *Runtime {
	return &Runtime{schema: s, reg: registry, transport: transport}
}

func (r *Runtime) Execute(ctx context.Context, req *executor.PartitionRequest) (*executor.PartitionResponse, error) {
	values := make([]map[string]any, len(req.Representations))
	for i := range values {
		values[i] = map[string]any{}
	}
	var errs []*gqlerror.Error

	objectType := r.partitionObjectType(req.Partition)
	isLoader := req.Partition.EntryKey != schema.NoKeyID

	for _, f := range req.Partition.Fields {
		fieldName := r.schema.Field(f.Definition).Name

		var md protoreflect.MethodDescriptor
		if isLoader {
			if md = r.reg.GetBatchLoaderDescriptor(objectType, fieldName); md == nil {
				md = r.reg.GetSingleLoaderDescriptor(objectType, fieldName)
			}
		} else {
			if md = r.reg.GetBatchResolverDescriptor(objectType, fieldName); md == nil {
				md = r.reg.GetSingleResolverDescriptor(objectType, fieldName)
			}
		}
		if md == nil {
			errs = append(errs, gqlerror.New(gqlerror.CodeSubgraphError, "no resolver/loader registered for %s.%s", objectType, fieldName))
			continue
		}

		results := r.call(ctx, md, f, req.Representations)
		for i, res := range results {
			if res.err != nil {
				errs = append(errs, gqlerror.New(gqlerror.CodeSubgraphError, "%s.%s: %v", objectType, fieldName, res.err))
				continue
			}
			values[i][f.ResponseKey] = res.value
		}
	}

	return &executor.PartitionResponse{Values: values, Errors: errs}, nil
}

// partitionObjectType names the type the partition's fields are resolved
// against: the root operation type for a root partition, or the entity's
// own type for one entered through an @key lookup.
func (r *Runtime) partitionObjectType(p *planner.Partition) string {
	if p.EntryKey != schema.NoKeyID {
		return r.schema.Type(r.schema.Key(p.EntryKey).ParentType).Name
	}
	if len(p.Fields) > 0 {
		return r.schema.Type(p.Fields[0].ParentType).Name
	}
	return ""
}

type fieldResult struct {
	value any
	err   error
}

// call builds one batched request message for md, one `batches` entry per
// representation merged with f's own arguments, executes it, and decodes
// each batch element against f's (already partition-pruned) selection.
func (r *Runtime) call(ctx context.Context, md protoreflect.MethodDescriptor, f *operation.Field, representations []map[string]any) []fieldResult {
	results := make([]fieldResult, len(representations))

	imd := md.Input()
	batchesField := imd.Fields().ByName("batches")
	if batchesField == nil {
		// Single (non-batch) method: one call per representation.
		for i, rep := range representations {
			req := dynamicpb.NewMessage(imd)
			if err := setMessageFieldsByJSON(req, mergeArgs(rep, f.Arguments)); err != nil {
				results[i] = fieldResult{err: err}
				continue
			}
			respMsg, err := r.transport.Call(ctx, md, req)
			if err != nil {
				results[i] = fieldResult{err: err}
				continue
			}
			results[i] = r.decodeResponse(respMsg, f)
		}
		return results
	}

	req := dynamicpb.NewMessage(imd)
	list := req.Mutable(batchesField).List()
	itemDesc := batchesField.Message()
	for _, rep := range representations {
		item := dynamicpb.NewMessage(itemDesc)
		if err := setMessageFieldsByJSON(item, mergeArgs(rep, f.Arguments)); err != nil {
			list.Append(protoreflect.ValueOfMessage(item))
			continue
		}
		list.Append(protoreflect.ValueOfMessage(item))
	}
	req.Set(batchesField, protoreflect.ValueOfList(list))

	respMsg, err := r.transport.Call(ctx, md, req)
	if err != nil {
		for i := range results {
			results[i] = fieldResult{err: err}
		}
		return results
	}

	omd := md.Output()
	bf := omd.Fields().ByName("batches")
	if bf == nil {
		err := fmt.Errorf("missing batches field in response")
		for i := range results {
			results[i] = fieldResult{err: err}
		}
		return results
	}
	batchesOut := respMsg.Get(bf).List()
	for i := range representations {
		if i >= batchesOut.Len() {
			results[i] = fieldResult{err: fmt.Errorf("missing batch element")}
			continue
		}
		msg := batchesOut.Get(i).Message()
		if msg == nil {
			results[i] = fieldResult{value: nil}
			continue
		}
		results[i] = r.decodeResponse(msg, f)
	}
	return results
}

// mergeArgs layers f's own GraphQL arguments over the representation's key
// fields, since both are already keyed by GraphQL field/argument name.
func mergeArgs(rep map[string]any, args map[string]any) map[string]any {
	out := make(map[string]any, len(rep)+len(args))
	for k, v := range rep {
		out[k] = v
	}
	for k, v := range args {
		out[k] = v
	}
	return out
}

// decodeResponse extracts a method response's "data" field and decodes it
// against f's selection.
func (r *Runtime) decodeResponse(resp protoreflect.Message, f *operation.Field) fieldResult {
	fd := resp.Descriptor().Fields().ByName("data")
	if fd == nil {
		return fieldResult{err: fmt.Errorf("missing data field in response")}
	}
	if fd.Cardinality() != protoreflect.Repeated && fd.Kind() == protoreflect.MessageKind && !resp.Has(fd) {
		return fieldResult{value: nil}
	}
	v := resp.Get(fd)
	return fieldResult{value: r.decodeFieldValue(fd, v, f)}
}

// decodeFieldValue turns one proto field value into a plain Go value
// (map[string]any / []any / scalar), recursing into f.Selection for
// message-kind fields rather than returning the raw protoreflect.Message a
// later step would have to decode again — a partition's result must be
// ready to merge directly into the response tree.
func (r *Runtime) decodeFieldValue(fd protoreflect.FieldDescriptor, v protoreflect.Value, f *operation.Field) any {
	if fd.Cardinality() == protoreflect.Repeated {
		lst := v.List()
		out := make([]any, lst.Len())
		for i := 0; i < lst.Len(); i++ {
			if fd.Kind() == protoreflect.MessageKind {
				out[i] = r.decodeMessageValue(lst.Get(i).Message(), f)
			} else {
				out[i] = r.handleValue(fd, lst.Get(i))
			}
		}
		return out
	}
	if fd.Kind() == protoreflect.MessageKind {
		return r.decodeMessageValue(v.Message(), f)
	}
	return r.handleValue(fd, v)
}

func (r *Runtime) decodeMessageValue(msg protoreflect.Message, f *operation.Field) any {
	if msg == nil {
		return nil
	}
	if decoded := r.unwrapInterfaceEnvelope(msg); decoded != nil {
		msg = decoded
	} else if union := r.unwrapUnionEnvelope(msg); union != nil {
		msg = union
	}
	if len(f.Selection) == 0 {
		return nil
	}
	out := make(map[string]any, len(f.Selection))
	for _, child := range f.Selection {
		if child.IsTypename {
			name := string(msg.Descriptor().Name())
			out[child.ResponseKey] = trimSourceSuffix(name)
			continue
		}
		childFieldName := r.schema.Field(child.Definition).Name
		fd := msg.Descriptor().Fields().ByJSONName(childFieldName)
		if fd == nil || !msg.Has(fd) {
			out[child.ResponseKey] = nil
			continue
		}
		out[child.ResponseKey] = r.decodeFieldValue(fd, msg.Get(fd), child)
	}
	return out
}

func trimSourceSuffix(name string) string {
	const suffix = "Source"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// handleValue converts a scalar/enum/bytes protobuf value to a Go value.
func (r *Runtime) handleValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return v.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return int32(v.Int())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return int64(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return uint32(v.Uint())
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return uint64(v.Uint())
	case protoreflect.FloatKind:
		return float32(v.Float())
	case protoreflect.DoubleKind:
		return v.Float()
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BytesKind:
		return base64.StdEncoding.EncodeToString(v.Bytes())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	default:
		return nil
	}
}

// ----------------- envelope unwrapping -----------------

func (r *Runtime) unwrapInterfaceEnvelope(msg protoreflect.Message) protoreflect.Message {
	if r == nil || r.reg == nil || msg == nil {
		return nil
	}
	fields := msg.Descriptor().Fields()
	typenameField := fields.ByName("typename")
	payloadField := fields.ByName("payload")
	if typenameField == nil || payloadField == nil {
		return nil
	}
	if typenameField.Kind() != protoreflect.StringKind || payloadField.Kind() != protoreflect.BytesKind {
		return nil
	}
	if !msg.Has(typenameField) {
		return nil
	}
	if !msg.Has(payloadField) {
		panic(fmt.Sprintf("grpcrt: interface envelope %s missing payload", msg.Descriptor().FullName()))
	}
	typeName := msg.Get(typenameField).String()
	desc := r.reg.GetSourceMessageDescriptor(typeName)
	if desc == nil {
		panic(fmt.Sprintf("grpcrt: missing source message descriptor for %s", typeName))
	}
	payload := msg.Get(payloadField).Bytes()
	out := dynamicpb.NewMessage(desc)
	if err := proto.Unmarshal(payload, out.Interface()); err != nil {
		panic(fmt.Sprintf("grpcrt: failed to unmarshal payload for %s: %v", typeName, err))
	}
	return out
}

func (r *Runtime) unwrapUnionEnvelope(msg protoreflect.Message) protoreflect.Message {
	if msg == nil {
		return nil
	}
	desc := msg.Descriptor()
	if desc == nil || desc.Oneofs().Len() != 1 {
		return nil
	}
	oneofDesc := desc.Oneofs().Get(0)
	if oneofDesc == nil || string(oneofDesc.Name()) != "value" {
		return nil
	}
	fd := msg.WhichOneof(oneofDesc)
	if fd == nil {
		return nil
	}
	if fd.Kind() != protoreflect.MessageKind {
		panic(fmt.Sprintf("grpcrt: union envelope %s has non-message variant %s", desc.FullName(), fd.FullName()))
	}
	if !msg.Has(fd) {
		return nil
	}
	return msg.Get(fd).Message()
}

// ----------------- request marshaling -----------------

func setMessageFieldsByJSON(msg protoreflect.Message, data map[string]any) error {
	if data == nil {
		return nil
	}
	fields := msg.Descriptor().Fields()
	byJSON := make(map[string]protoreflect.FieldDescriptor, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		byJSON[string(f.JSONName())] = f
	}
	for k, v := range data {
		fd := byJSON[k]
		if fd == nil {
			continue
		}
		if fd.Cardinality() == protoreflect.Repeated {
			list := msg.Mutable(fd).List()
			switch vv := v.(type) {
			case []any:
				for _, it := range vv {
					pv, err := toProtoScalarOrMessage(fd, it)
					if err != nil {
						return err
					}
					list.Append(pv)
				}
			case []string:
				for _, s := range vv {
					list.Append(protoreflect.ValueOfString(s))
				}
			case []int:
				for _, n := range vv {
					list.Append(protoreflect.ValueOfInt64(int64(n)))
				}
			default:
				return fmt.Errorf("unsupported repeated arg type for %s", fd.JSONName())
			}
			msg.Set(fd, protoreflect.ValueOfList(list))
			continue
		}
		val, err := toProtoScalarOrMessage(fd, v)
		if err != nil {
			return err
		}
		msg.Set(fd, val)
	}
	return nil
}

func toProtoScalarOrMessage(fd protoreflect.FieldDescriptor, v any) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if b, ok := v.(bool); ok {
			return protoreflect.ValueOfBool(b), nil
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if n, ok := v.(int32); ok {
			return protoreflect.ValueOfInt32(n), nil
		}
		if n, ok := v.(int); ok {
			return protoreflect.ValueOfInt32(int32(n)), nil
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if n, ok := v.(int64); ok {
			return protoreflect.ValueOfInt64(n), nil
		}
		if n, ok := v.(int); ok {
			return protoreflect.ValueOfInt64(int64(n)), nil
		}
	case protoreflect.FloatKind:
		if n, ok := v.(float32); ok {
			return protoreflect.ValueOfFloat32(n), nil
		}
		if n, ok := v.(float64); ok {
			return protoreflect.ValueOfFloat32(float32(n)), nil
		}
	case protoreflect.DoubleKind:
		if n, ok := v.(float64); ok {
			return protoreflect.ValueOfFloat64(n), nil
		}
	case protoreflect.StringKind:
		if s, ok := v.(string); ok {
			return protoreflect.ValueOfString(s), nil
		}
	case protoreflect.BytesKind:
		if b, ok := v.([]byte); ok {
			return protoreflect.ValueOfBytes(b), nil
		}
	case protoreflect.EnumKind:
		if s, ok := v.(string); ok {
			if val := fd.Enum().Values().ByName(protoreflect.Name(s)); val != nil {
				return protoreflect.ValueOfEnum(val.Number()), nil
			}
		}
	case protoreflect.MessageKind:
		if mv, ok := v.(map[string]any); ok {
			msg := dynamicpb.NewMessage(fd.Message())
			if err := setMessageFieldsByJSON(msg, mv); err != nil {
				return protoreflect.Value{}, err
			}
			return protoreflect.ValueOfMessage(msg), nil
		}
	}
	return protoreflect.Value{}, fmt.Errorf("unsupported arg type for %s", fd.JSONName())
}
