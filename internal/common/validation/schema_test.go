package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const questionSchema = `{
  "type": "object",
  "required": ["question", "intent"],
  "properties": {
    "question": {"type": "string", "minLength": 1},
    "intent": {"type": "string"},
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["label"],
        "properties": {"label": {"type": "string"}}
      }
    }
  }
}`

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]interface{}
		valid     bool
		errorCode string
	}{
		{
			name:  "valid",
			doc:   map[string]interface{}{"question": "今年销售额是多少", "intent": "single_metric"},
			valid: true,
		},
		{
			name:      "missing intent",
			doc:       map[string]interface{}{"question": "q"},
			valid:     false,
			errorCode: "REQUIRED",
		},
		{
			name:      "empty question",
			doc:       map[string]interface{}{"question": "", "intent": "trend"},
			valid:     false,
			errorCode: "STRING_GTE",
		},
		{
			name: "result without label",
			doc: map[string]interface{}{
				"question": "q", "intent": "trend",
				"results": []interface{}{map[string]interface{}{"value": 1}},
			},
			valid:     false,
			errorCode: "REQUIRED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateDocument(questionSchema, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.errorCode, res.Errors[0].Code)
				assert.NotEmpty(t, res.Summary())
			}
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	schema, err := Compile(json.RawMessage(questionSchema))
	require.NoError(t, err)

	res, err := schema.ValidateJSON(`{"question":"各季度销售额是多少","intent":"multi_metric","results":[{"label":"Q1"}]}`)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = schema.ValidateJSON(`{not json`)
	assert.Error(t, err)
}

func TestCompile_NilAndInvalid(t *testing.T) {
	schema, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)

	res, err := schema.Validate(map[string]interface{}{"anything": true})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = Compile(`{"type": 12}`)
	assert.Error(t, err)
}

func TestValidationResult_Helpers(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "results.0.label", Message: "required"},
		{Field: "question", Message: "too short"},
	}}

	assert.True(t, vr.HasErrors("question"))
	assert.False(t, vr.HasErrors("intent"))
	assert.Len(t, vr.GetErrorsForField("results"), 1)
	assert.Equal(t, []string{"results.0.label: required", "question: too short"}, vr.GetErrorMessages())
}
