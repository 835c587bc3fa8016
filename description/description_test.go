package description_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/description"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

func TestLoadFile_YAML(t *testing.T) {
	d, err := description.LoadFile("testdata/users.yaml")
	require.NoError(t, err)

	assert.Equal(t, "users", d.Name)
	assert.Equal(t, []string{"GetUser", "ListTags", "Ping", "Export"}, d.OperationNames())
	assert.Equal(t, []string{"User", "Tags", "TagList", "Admin"}, d.ModelNames())

	user, ok := d.Model("User")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "tags", "requestId", "meta"}, user.PropertyNames())
	assert.Equal(t, schema.AdditionalDeny, user.AdditionalProperties.Mode)
	assert.Equal(t, "json", user.Location)
	assert.Equal(t, "ID", user.Property("id").WireName())

	name := user.Property("name")
	require.Len(t, name.Filters, 2)
	assert.Equal(t, "trim", name.Filters[0].Name)
	out, err := name.Filter(value.String(" bob "))
	require.NoError(t, err)
	assert.Equal(t, "BOB", out.Raw())

	tags := user.Property("tags")
	assert.Equal(t, "tags", tags.Name)
	assert.Equal(t, schema.TypeArray, tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, "lower", tags.Items.Filters[0].Name)

	meta := user.Property("meta")
	assert.Equal(t, schema.AdditionalSchema, meta.AdditionalProperties.Mode)
	require.Len(t, meta.AdditionalProperties.Schema.Filters, 1)
}

func TestLoad_ResponseTypes(t *testing.T) {
	d, err := description.LoadFile("testdata/users.yaml")
	require.NoError(t, err)

	tests := []struct {
		op        string
		wantType  description.ResponseType
		wantModel string
	}{
		{"GetUser", description.ResponseModel, "User"},
		{"ListTags", description.ResponseModel, "TagList"},
		{"Ping", description.ResponsePrimitive, ""},
		{"Export", description.ResponseClass, ""},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			op, ok := d.Operation(tt.op)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, op.ResponseType)
			assert.Equal(t, tt.wantModel, op.ResponseModel)
			if tt.wantModel != "" {
				assert.NotNil(t, op.Model)
			}
		})
	}
}

func TestLoad_Extends(t *testing.T) {
	d, err := description.LoadFile("testdata/users.yaml")
	require.NoError(t, err)
	admin, ok := d.Model("Admin")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "tags", "requestId", "meta", "role"}, admin.PropertyNames())
	assert.Equal(t, "Admin", admin.Name)

	user, _ := d.Model("User")
	assert.Nil(t, user.Property("role"))
}

func TestLoadJSON_KeepsOrder(t *testing.T) {
	d, err := description.LoadJSON([]byte(`{
		"operations": {"Get": {"responseModel": "Thing", "responseType": "model"}},
		"models": {"Thing": {"type": "object", "properties": {"z": {}, "a": {"sentAs": ""}, "m": {"additionalProperties": true}}}}
	}`))
	require.NoError(t, err)
	thing, ok := d.Model("Thing")
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, thing.PropertyNames())
	assert.True(t, thing.Property("a").SentAsEmpty())
	assert.Equal(t, schema.AdditionalAllow, thing.Property("m").AdditionalProperties.Mode)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"cycle", "models:\n  A:\n    properties:\n      self:\n        $ref: A\n"},
		{"unknown ref", "models:\n  A:\n    items:\n      $ref: Missing\n"},
		{"unknown filter", "models:\n  A:\n    filters: [nope]\n"},
		{"bad additional", "models:\n  A:\n    additionalProperties: 3\n"},
		{"bad response type", "operations:\n  Op:\n    responseType: weird\n"},
		{"not a mapping", "- a\n- b\n"},
		{"bad yaml", "a: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := description.LoadYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, guzzle.ErrInvalidDescription)
		})
	}
}

func TestLoadJSON_DuplicateKeyRejected(t *testing.T) {
	_, err := description.LoadJSON([]byte(`{"models":{},"models":{}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, guzzle.ErrInvalidDescription)
}

func TestLoad_UnknownResponseModelLeftUnresolved(t *testing.T) {
	d, err := description.LoadYAML([]byte("operations:\n  Op:\n    responseModel: Ghost\n"))
	require.NoError(t, err)
	op, _ := d.Operation("Op")
	assert.Equal(t, description.ResponseModel, op.ResponseType)
	assert.Nil(t, op.Model)
}
