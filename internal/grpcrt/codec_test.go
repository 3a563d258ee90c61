package grpcrt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func protoString(s string) *string { return &s }
func protoInt32(n int32) *int32    { return &n }

// buildFile wraps a FileDescriptorProto through protodesc so callers can
// pull message/field descriptors out of it, the same way protoreg's own
// generated descriptors are consumed at runtime.
func buildFile(t *testing.T, file *descriptorpb.FileDescriptorProto) protoreflect.FileDescriptor {
	t.Helper()
	set := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{file}}
	files, err := protodesc.NewFiles(set)
	require.NoError(t, err)
	fd, err := files.FindFileByPath(file.GetName())
	require.NoError(t, err)
	return fd
}

func scalarField(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name: protoString(name), JsonName: protoString(name), Number: protoInt32(num),
		Label: descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(), Type: typ.Enum(),
	}
}

func TestHandleValue_ScalarKinds(t *testing.T) {
	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("scalars.proto"), Package: protoString("sc"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: protoString("S"),
			Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("b", 1, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				scalarField("i32", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				scalarField("s", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("bs", 4, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
			},
		}},
		Syntax: protoString("proto3"),
	})
	md := fdesc.Messages().ByName("S")
	msg := dynamicpb.NewMessage(md)
	msg.Set(md.Fields().ByName("b"), protoreflect.ValueOfBool(true))
	msg.Set(md.Fields().ByName("i32"), protoreflect.ValueOfInt32(10))
	msg.Set(md.Fields().ByName("s"), protoreflect.ValueOfString("x"))
	msg.Set(md.Fields().ByName("bs"), protoreflect.ValueOfBytes([]byte{1, 2}))

	rt := &Runtime{}
	require.Equal(t, true, rt.handleValue(md.Fields().ByName("b"), msg.Get(md.Fields().ByName("b"))))
	require.Equal(t, int32(10), rt.handleValue(md.Fields().ByName("i32"), msg.Get(md.Fields().ByName("i32"))))
	require.Equal(t, "x", rt.handleValue(md.Fields().ByName("s"), msg.Get(md.Fields().ByName("s"))))
	require.Equal(t, "AQI=", rt.handleValue(md.Fields().ByName("bs"), msg.Get(md.Fields().ByName("bs"))))
}

func TestHandleValue_EnumNameOrNumber(t *testing.T) {
	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("enum.proto"), Package: protoString("e"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: protoString("Color"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: protoString("COLOR_UNSPECIFIED"), Number: protoInt32(0)},
				{Name: protoString("RED"), Number: protoInt32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: protoString("E"),
			Field: []*descriptorpb.FieldDescriptorProto{{
				Name: protoString("color"), JsonName: protoString("color"), Number: protoInt32(1),
				Type: descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(), TypeName: protoString(".e.Color"),
			}},
		}},
		Syntax: protoString("proto3"),
	})
	md := fdesc.Messages().ByName("E")
	f := md.Fields().ByName("color")
	rt := &Runtime{}

	msg := dynamicpb.NewMessage(md)
	msg.Set(f, protoreflect.ValueOfEnum(1))
	require.Equal(t, "RED", rt.handleValue(f, msg.Get(f)))

	msg2 := dynamicpb.NewMessage(md)
	msg2.Set(f, protoreflect.ValueOfEnum(99))
	require.Equal(t, int32(99), rt.handleValue(f, msg2.Get(f)))
}

func TestUnwrapUnionEnvelope(t *testing.T) {
	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("union.proto"), Package: protoString("u"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: protoString("Cat"), Field: []*descriptorpb.FieldDescriptorProto{scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)}},
			{
				Name: protoString("AnimalUnion"),
				Field: []*descriptorpb.FieldDescriptorProto{{
					Name: protoString("cat"), JsonName: protoString("cat"), Number: protoInt32(1),
					Type: descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(), TypeName: protoString(".u.Cat"),
					OneofIndex: protoInt32(0),
				}},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: protoString("value")}},
			},
		},
		Syntax: protoString("proto3"),
	})
	union := fdesc.Messages().ByName("AnimalUnion")
	cat := fdesc.Messages().ByName("Cat")

	catMsg := dynamicpb.NewMessage(cat)
	catMsg.Set(cat.Fields().ByName("name"), protoreflect.ValueOfString("Tom"))

	unionMsg := dynamicpb.NewMessage(union)
	unionMsg.Set(union.Fields().ByName("cat"), protoreflect.ValueOfMessage(catMsg))

	rt := &Runtime{}
	out := rt.unwrapUnionEnvelope(unionMsg)
	require.NotNil(t, out)
	require.Equal(t, "Tom", out.Get(out.Descriptor().Fields().ByName("name")).String())
}

func TestUnwrapInterfaceEnvelope(t *testing.T) {
	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("iface.proto"), Package: protoString("i"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: protoString("DogSource"), Field: []*descriptorpb.FieldDescriptorProto{scalarField("breed", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)}},
			{
				Name: protoString("AnimalEnvelope"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("typename", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("payload", 2, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
				},
			},
		},
		Syntax: protoString("proto3"),
	})
	dogDesc := fdesc.Messages().ByName("DogSource")
	envelopeDesc := fdesc.Messages().ByName("AnimalEnvelope")

	dogMsg := dynamicpb.NewMessage(dogDesc)
	dogMsg.Set(dogDesc.Fields().ByName("breed"), protoreflect.ValueOfString("Husky"))
	payload, err := proto.Marshal(dogMsg.Interface())
	require.NoError(t, err)

	envelope := dynamicpb.NewMessage(envelopeDesc)
	envelope.Set(envelopeDesc.Fields().ByName("typename"), protoreflect.ValueOfString("Dog"))
	envelope.Set(envelopeDesc.Fields().ByName("payload"), protoreflect.ValueOfBytes(payload))

	reg := NewMockRegistry().RegisterSourceMessage("Dog", dogDesc)
	rt := &Runtime{reg: reg}

	out := rt.unwrapInterfaceEnvelope(envelope)
	require.NotNil(t, out)
	require.Equal(t, "Husky", out.Get(out.Descriptor().Fields().ByName("breed")).String())
}

func TestSetMessageFieldsByJSON(t *testing.T) {
	fdesc := buildFile(t, &descriptorpb.FileDescriptorProto{
		Name: protoString("req.proto"), Package: protoString("r"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: protoString("Req"),
			Field: []*descriptorpb.FieldDescriptorProto{
				scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				{
					Name: protoString("tags"), JsonName: protoString("tags"), Number: protoInt32(2),
					Label: descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					Type:  descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
				},
			},
		}},
		Syntax: protoString("proto3"),
	})
	md := fdesc.Messages().ByName("Req")
	msg := dynamicpb.NewMessage(md)

	err := setMessageFieldsByJSON(msg, map[string]any{"id": "u1", "tags": []any{"a", "b"}})
	require.NoError(t, err)
	require.Equal(t, "u1", msg.Get(md.Fields().ByName("id")).String())
	tags := msg.Get(md.Fields().ByName("tags")).List()
	require.Equal(t, 2, tags.Len())
	require.Equal(t, "a", tags.Get(0).String())
}
