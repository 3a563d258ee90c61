package grpcrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/gatewaycore/internal/executor"
	"github.com/hanpama/gatewaycore/internal/operation"
	"github.com/hanpama/gatewaycore/internal/planner"
	"github.com/hanpama/gatewaycore/internal/schema"
)

func buildRuntimeTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{
		{Name: "accounts", Kind: schema.SubgraphVirtual, SDL: `
			type Query { me: User }
			type User @key(fields: "id") {
				id: ID!
				name: String!
				reviews: [Review!]!
			}
			type Review { text: String! }
		`},
	})
	require.NoError(t, err)
	return s
}

func findField(t *testing.T, s *schema.Schema, typeName, fieldName string) schema.FieldID {
	t.Helper()
	for _, typ := range s.Types {
		if typ.Name != typeName {
			continue
		}
		for _, fid := range typ.Fields {
			if s.Field(fid).Name == fieldName {
				return fid
			}
		}
	}
	t.Fatalf("field %s.%s not found", typeName, fieldName)
	return 0
}

// TestRuntimeExecute_RootSingleResolver exercises a root partition (Query.me)
// served by a single (non-batch) resolver method.
func TestRuntimeExecute_RootSingleResolver(t *testing.T) {
	s := buildRuntimeTestSchema(t)

	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("accounts.proto"), Package: protoString("accounts"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: protoString("ResolveQueryMeRequest")},
			{
				Name: protoString("UserSource"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: protoString("ResolveQueryMeResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{{
					Name: protoString("data"), JsonName: protoString("data"), Number: protoInt32(1),
					Type: descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), TypeName: protoString(".accounts.UserSource"),
				}},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: protoString("AccountsService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       protoString("ResolveQueryMe"),
				InputType:  protoString(".accounts.ResolveQueryMeRequest"),
				OutputType: protoString(".accounts.ResolveQueryMeResponse"),
			}},
		}},
		Syntax: protoString("proto3"),
	})
	method := fdesc.Services().ByName("AccountsService").Methods().ByName("ResolveQueryMe")

	reg := NewMockRegistry().RegisterSingleResolver("Query", "me", method)

	userSourceDesc := fdesc.Messages().ByName("UserSource")
	userMsg := dynamicpb.NewMessage(userSourceDesc)
	userMsg.Set(userSourceDesc.Fields().ByName("id"), protoreflect.ValueOfString("1"))
	userMsg.Set(userSourceDesc.Fields().ByName("name"), protoreflect.ValueOfString("Ada"))

	respDesc := fdesc.Messages().ByName("ResolveQueryMeResponse")
	resp := dynamicpb.NewMessage(respDesc)
	resp.Set(respDesc.Fields().ByName("data"), protoreflect.ValueOfMessage(userMsg))

	transport := NewMockTransport(resp)
	rt := NewRuntime(s, reg, transport)

	meField := &operation.Field{
		ResponseKey: "me",
		Definition:  findField(t, s, "Query", "me"),
		ParentType:  s.QueryType,
		Selection: operation.SelectionSet{
			{ResponseKey: "id", Definition: findField(t, s, "User", "id")},
			{ResponseKey: "name", Definition: findField(t, s, "User", "name")},
		},
	}
	partition := &planner.Partition{
		EntryKey:      schema.NoKeyID,
		MutationIndex: -1,
		Fields:        []*operation.Field{meField},
	}

	out, err := rt.Execute(context.Background(), &executor.PartitionRequest{
		Partition:       partition,
		Representations: []map[string]any{{}},
	})
	require.NoError(t, err)
	require.Empty(t, out.Errors)
	require.Len(t, out.Values, 1)
	me, ok := out.Values[0]["me"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Ada", me["name"])
}

// TestRuntimeExecute_EntityLoaderBatch exercises an entity-lookup partition
// (User.reviews) served by a batch loader, one representation per entity.
func TestRuntimeExecute_EntityLoaderBatch(t *testing.T) {
	s := buildRuntimeTestSchema(t)

	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("accounts2.proto"), Package: protoString("accounts2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: protoString("LoadUserByIdRequest"), Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			}},
			{Name: protoString("ReviewSource"), Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("text", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			}},
			{Name: protoString("LoadUserByIdResponse"), Field: []*descriptorpb.FieldDescriptorProto{{
				Name: protoString("data"), JsonName: protoString("data"), Number: protoInt32(1),
				Label: descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
				Type:  descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), TypeName: protoString(".accounts2.ReviewSource"),
			}}},
			{Name: protoString("BatchLoadUserByIdRequest"), Field: []*descriptorpb.FieldDescriptorProto{{
				Name: protoString("batches"), JsonName: protoString("batches"), Number: protoInt32(1),
				Label: descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
				Type:  descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), TypeName: protoString(".accounts2.LoadUserByIdRequest"),
			}}},
			{Name: protoString("BatchLoadUserByIdResponse"), Field: []*descriptorpb.FieldDescriptorProto{{
				Name: protoString("batches"), JsonName: protoString("batches"), Number: protoInt32(1),
				Label: descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
				Type:  descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), TypeName: protoString(".accounts2.LoadUserByIdResponse"),
			}}},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: protoString("AccountsService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       protoString("BatchLoadUserById"),
				InputType:  protoString(".accounts2.BatchLoadUserByIdRequest"),
				OutputType: protoString(".accounts2.BatchLoadUserByIdResponse"),
			}},
		}},
		Syntax: protoString("proto3"),
	})
	method := fdesc.Services().ByName("AccountsService").Methods().ByName("BatchLoadUserById")
	reg := NewMockRegistry().RegisterBatchLoader("User", "reviews", method)

	reviewDesc := fdesc.Messages().ByName("ReviewSource")
	mkReview := func(text string) protoreflect.Message {
		m := dynamicpb.NewMessage(reviewDesc)
		m.Set(reviewDesc.Fields().ByName("text"), protoreflect.ValueOfString(text))
		return m
	}

	singleRespDesc := fdesc.Messages().ByName("LoadUserByIdResponse")
	mkSingleResp := func(texts ...string) protoreflect.Message {
		m := dynamicpb.NewMessage(singleRespDesc)
		list := m.Mutable(singleRespDesc.Fields().ByName("data")).List()
		for _, txt := range texts {
			list.Append(protoreflect.ValueOfMessage(mkReview(txt)))
		}
		m.Set(singleRespDesc.Fields().ByName("data"), protoreflect.ValueOfList(list))
		return m
	}

	batchRespDesc := fdesc.Messages().ByName("BatchLoadUserByIdResponse")
	batchResp := dynamicpb.NewMessage(batchRespDesc)
	batchList := batchResp.Mutable(batchRespDesc.Fields().ByName("batches")).List()
	batchList.Append(protoreflect.ValueOfMessage(mkSingleResp("great")))
	batchList.Append(protoreflect.ValueOfMessage(mkSingleResp("ok", "meh")))
	batchResp.Set(batchRespDesc.Fields().ByName("batches"), protoreflect.ValueOfList(batchList))

	transport := NewMockTransport(batchResp)
	rt := NewRuntime(s, reg, transport)

	var userKey schema.KeyID
	for _, typ := range s.Types {
		if typ.Name == "User" {
			userKey = typ.Keys[0]
		}
	}

	reviewsField := &operation.Field{
		ResponseKey: "reviews",
		Definition:  findField(t, s, "User", "reviews"),
		ParentType:  func() schema.TypeID { id, _ := s.TypeByName("User"); return id }(),
		Selection: operation.SelectionSet{
			{ResponseKey: "text", Definition: findField(t, s, "Review", "text")},
		},
	}
	partition := &planner.Partition{
		EntryKey:      userKey,
		ParentPath:    []string{"me"},
		MutationIndex: -1,
		Fields:        []*operation.Field{reviewsField},
	}

	out, err := rt.Execute(context.Background(), &executor.PartitionRequest{
		Partition:       partition,
		Representations: []map[string]any{{"id": "1"}, {"id": "2"}},
	})
	require.NoError(t, err)
	require.Empty(t, out.Errors)
	require.Len(t, out.Values, 2)

	r0, ok := out.Values[0]["reviews"].([]any)
	require.True(t, ok)
	require.Len(t, r0, 1)
	require.Equal(t, "great", r0[0].(map[string]any)["text"])

	r1, ok := out.Values[1]["reviews"].([]any)
	require.True(t, ok)
	require.Len(t, r1, 2)
	require.Equal(t, "ok", r1[0].(map[string]any)["text"])
	require.Equal(t, "meh", r1[1].(map[string]any)["text"])
}
