package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_RecipeFixtures(t *testing.T) {
	v := NewSchemaValidator()

	tests := []struct {
		name      string
		data      string
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid catalog",
			data:      `{"recipes": [{"output": 3, "inputs": [{"item_id": 1, "quantity": 2}]}]}`,
			wantError: false,
		},
		{
			name:      "valid catalog with inventory",
			data:      `{"recipes": [], "inventory": [{"item_id": 1, "quantity": 0}]}`,
			wantError: false,
		},
		{
			name:      "missing recipes",
			data:      `{"version": "1"}`,
			wantError: true,
			errorMsg:  "required",
		},
		{
			name:      "zero quantity input",
			data:      `{"recipes": [{"output": 3, "inputs": [{"item_id": 1, "quantity": 0}]}]}`,
			wantError: true,
			errorMsg:  "minimum",
		},
		{
			name:      "unknown field",
			data:      `{"recipes": [{"output": 3, "inputs": [], "station": "oven"}]}`,
			wantError: true,
			errorMsg:  "additionalProperties",
		},
		{
			name:      "invalid json",
			data:      `{"recipes": [`,
			wantError: true,
			errorMsg:  "failed to parse JSON data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBytes([]byte(tt.data), SchemaRecipes)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSchemaValidator_ValidateFileFromDisk(t *testing.T) {
	v := NewSchemaValidator()
	tmpDir := t.TempDir()

	schemaPath := filepath.Join(tmpDir, "land.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
		"type": "object",
		"properties": {"land_id": {"type": "integer", "minimum": 1}},
		"required": ["land_id"]
	}`), 0644))

	dataPath := filepath.Join(tmpDir, "land.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(`{"land_id": 7}`), 0644))
	assert.NoError(t, v.ValidateFile(dataPath, schemaPath))

	require.NoError(t, os.WriteFile(dataPath, []byte(`{"land_id": 0}`), 0644))
	assert.Error(t, v.ValidateFile(dataPath, schemaPath))
}

func TestSchemaValidator_MissingFile(t *testing.T) {
	v := NewSchemaValidator()
	err := v.ValidateFile("/nonexistent/file.json", SchemaRecipes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read data file")
}
