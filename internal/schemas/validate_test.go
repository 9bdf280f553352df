package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllSchemasEmbedded(t *testing.T) {
	for _, name := range []string{Classification, Research, DocumentScore, Comparison, Calibration} {
		t.Run(name, func(t *testing.T) {
			schema, err := Load(name)
			require.NoError(t, err)
			assert.Contains(t, schema, `"$schema"`)
		})
	}
}

func TestLoad_UnknownSchema(t *testing.T) {
	_, err := Load("nope")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope", loadErr.Name)

	assert.ErrorAs(t, Validate("nope", `{}`), &loadErr)
}

func TestDecode_DocumentScore(t *testing.T) {
	var out struct {
		Relevance  float64 `json:"relevance"`
		Quality    float64 `json:"quality"`
		Usefulness float64 `json:"usefulness"`
	}
	err := Decode(DocumentScore, `{"relevance":0.9,"quality":0.5,"usefulness":0.25}`, &out)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, out.Relevance, 1e-9)
	assert.InDelta(t, 0.25, out.Usefulness, 1e-9)
}

func TestDecode_OutOfRangeRejected(t *testing.T) {
	var out map[string]any
	err := Decode(DocumentScore, `{"relevance":1.5,"quality":0.5,"usefulness":0.2}`, &out)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, DocumentScore, ve.Schema)
	require.NotEmpty(t, ve.Errors)
	assert.Equal(t, "relevance", ve.Errors[0].Field)
	assert.Nil(t, out)
}

func TestDecode_MissingRequired(t *testing.T) {
	var out map[string]any
	err := Decode(Calibration, `{"delta": -5}`, &out)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Error(), "calibration: ")
}

func TestDecode_EnumEnforced(t *testing.T) {
	var out map[string]any
	err := Decode(Classification, `{"in_scope":true,"query_type":"recipe"}`, &out)
	assert.Error(t, err)

	err = Decode(Classification, `{"in_scope":true,"query_type":"company","company":"Acme"}`, &out)
	assert.NoError(t, err)
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(Research, `{"employer_summary":`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken", loadErr.Name)
}

func TestValidate_ErrorsSortedByField(t *testing.T) {
	err := Validate(DocumentScore, `{"relevance":2,"quality":-1,"usefulness":0.5}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 2)
	assert.Equal(t, "quality", ve.Errors[0].Field)
	assert.Equal(t, "relevance", ve.Errors[1].Field)
}

func TestValidate_CachesCompiledSchema(t *testing.T) {
	require.NoError(t, Validate(DocumentScore, `{"relevance":0,"quality":0,"usefulness":0}`))
	first := compiled[DocumentScore]
	require.NotNil(t, first)
	require.NoError(t, Validate(DocumentScore, `{"relevance":1,"quality":1,"usefulness":1}`))
	assert.Same(t, first, compiled[DocumentScore])
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	assert.Equal(t, "schema: 2 violation(s): a: bad; b: worse", err.Error())

	err.Schema = Research
	assert.Equal(t, "research: 2 violation(s): a: bad; b: worse", err.Error())
}
