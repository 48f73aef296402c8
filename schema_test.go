package alba_test

import (
	"context"
	"testing"

	"github.com/Watson1978/alba"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_RemoveAttributes(t *testing.T) {
	e := newEngine(t)
	s := alba.NewSchema("post").
		Attributes("id", "title", "body").
		RemoveAttributes("title")

	out, err := e.Serialize(context.Background(), s, Post{ID: 1, Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"body":"b"}`, string(out))
}

func TestSchema_RemoveAbsentIsNoop(t *testing.T) {
	e := newEngine(t)
	s := alba.NewSchema("post").
		Attributes("id", "body").
		RemoveAttributes("nope", "also_nope")

	out, err := e.Serialize(context.Background(), s, Post{ID: 1, Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"body":"b"}`, string(out))
}

func TestSchema_DeriveIsIndependent(t *testing.T) {
	parent := alba.NewSchema("post").Attributes("id", "title")
	child := parent.Derive("short_post")

	// Mutating the child never touches the parent...
	child.RemoveAttributes("title")
	// ...and vice versa.
	parent.Attributes("body")

	e := newEngine(t)
	obj := Post{ID: 1, Title: "t", Body: "b"}

	parentOut, err := e.Serialize(context.Background(), parent, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"title":"t","body":"b"}`, string(parentOut))

	childOut, err := e.Serialize(context.Background(), child, obj)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(childOut))
}

func TestSchema_DeriveCopiesSettings(t *testing.T) {
	parent := alba.NewSchema("post").
		Attributes("display_name").
		Root("post").
		TransformKeys(alba.KeyLowerCamel)
	child := parent.Derive("child_post")

	e := newEngine(t)
	out, err := e.Serialize(context.Background(), child,
		map[string]any{"display_name": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"post":{"displayName":"x"}}`, string(out))
}

func TestSchema_AttributeNilFnPanics(t *testing.T) {
	assert.PanicsWithError(t, `alba: attribute declaration requires a block: "title"`, func() {
		alba.NewSchema("post").Attribute("title", nil)
	})
}

func TestSchema_Name(t *testing.T) {
	assert.Equal(t, "post", alba.NewSchema("post").Name())
}
