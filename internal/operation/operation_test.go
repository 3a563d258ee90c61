package operation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gatewaycore/internal/schema"
)

func buildTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sdl := `
		type Query { user(id: ID!): User widgets: [Widget!]! }
		type User { id: ID! name: String! tag: Tag }
		enum Tag { GOLD SILVER }
		type Widget { id: ID! label: String! }
	`
	s, err := schema.BuildSupergraph([]schema.SubgraphInput{{Name: "a", SDL: sdl, Kind: schema.SubgraphGraphQL}})
	require.NoError(t, err)
	return s
}

func TestPrepare_BindsFieldsAndCoercesArguments(t *testing.T) {
	s := buildTestSchema(t)
	p, err := Prepare(s, "build-1", `query Get($id: ID!) { user(id: $id) { name tag } }`, "Get", map[string]any{"id": 42})
	require.NoError(t, err)

	require.Len(t, p.Selection, 1)
	userField := p.Selection[0]
	require.Equal(t, "user", userField.ResponseKey)
	require.Equal(t, "42", userField.Arguments["id"])
	require.Len(t, userField.Selection, 2)
}

func TestPrepare_FingerprintStableAcrossIdenticalInputs(t *testing.T) {
	s := buildTestSchema(t)
	q := `query { widgets { id label } }`
	p1, err := Prepare(s, "build-1", q, "", nil)
	require.NoError(t, err)
	p2, err := Prepare(s, "build-1", q, "", nil)
	require.NoError(t, err)
	require.Equal(t, p1.Fingerprint, p2.Fingerprint)

	p3, err := Prepare(s, "build-2", q, "", nil)
	require.NoError(t, err)
	require.NotEqual(t, p1.Fingerprint, p3.Fingerprint)
}

func TestPrepare_UnknownFieldIsRejected(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Prepare(s, "build-1", `query { user(id: "1") { nope } }`, "", nil)
	require.Error(t, err)
}

func TestPrepare_SkipDirectiveExcludesField(t *testing.T) {
	s := buildTestSchema(t)
	p, err := Prepare(s, "build-1", `query { user(id: "1") { name tag @skip(if: true) } }`, "", nil)
	require.NoError(t, err)
	require.Len(t, p.Selection[0].Selection, 1)
	require.Equal(t, "name", p.Selection[0].Selection[0].ResponseKey)
}

// TestPrepare_UnknownArgumentIsRejectedByStandardValidation confirms the
// wired gqlparser/v2/validator.Validate pass actually runs: an argument
// that isn't declared on the field is a standard validation error, never
// reaching the binder (which skips undeclared arguments and would instead
// complain that the required "id" argument is missing).
func TestPrepare_UnknownArgumentIsRejectedByStandardValidation(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Prepare(s, "build-1", `query { user(nope: "1") { name } }`, "", nil)
	require.Error(t, err)
}

// TestPrepare_FragmentCycleIsRejected confirms standard validation's
// fragment-cycle rule runs before operation limits ever see the document,
// since checkLimits' own recursion assumes a cycle-free document.
func TestPrepare_FragmentCycleIsRejected(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Prepare(s, "build-1", `
		query { user(id: "1") { ...A } }
		fragment A on User { name ...B }
		fragment B on User { name ...A }
	`, "", nil)
	require.Error(t, err)
}

func TestPrepare_RootFieldCountOverLimitIsRejected(t *testing.T) {
	s := buildTestSchema(t)
	limits := DefaultLimits
	limits.MaxRootFields = 1
	orig := DefaultLimits
	DefaultLimits = limits
	defer func() { DefaultLimits = orig }()

	_, err := Prepare(s, "build-1", `query { widgets { id } user(id: "1") { name } }`, "", nil)
	require.Error(t, err)
}

func TestPrepare_DepthOverLimitIsRejected(t *testing.T) {
	s := buildTestSchema(t)
	limits := DefaultLimits
	limits.MaxDepth = 1
	orig := DefaultLimits
	DefaultLimits = limits
	defer func() { DefaultLimits = orig }()

	_, err := Prepare(s, "build-1", `query { user(id: "1") { name } }`, "", nil)
	require.Error(t, err)
}
