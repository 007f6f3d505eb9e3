// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runcoach/runcoach/internal/config"
	"github.com/runcoach/runcoach/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
	assert.Equal(t, "RunCoach Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"database", "auth", "http", "metrics", "log", "debug", "integrations"} {
		assert.Contains(t, props, key)
	}

	db := props["database"].(map[string]any)["properties"].(map[string]any)
	timeout := db["connect_timeout"].(map[string]any)
	assert.Equal(t, "string", timeout["type"], "durations are written as strings")
}

func TestValidateYAML(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"full document", `
database:
  url: postgres://localhost/runcoach
  connect_timeout: 30s
auth:
  secret_key: abc
  bcrypt_cost: 12
http:
  addr: ":8000"
  cors_origins: ["https://app.example"]
  shutdown_timeout: 10s
metrics:
  addr: ""
log:
  format: json
debug: false
`, true},
		{"partial document", "log:\n  format: text\n", true},
		{"unknown key", "auth:\n  secret: abc\n", false},
		{"cost out of range", "auth:\n  bcrypt_cost: 40\n", false},
		{"cost below floor", "auth:\n  bcrypt_cost: 9\n", false},
		{"bad log format", "log:\n  format: xml\n", false},
		{"bad duration", "database:\n  connect_timeout: soon\n", false},
		{"wrong type", "debug: [1]\n", false},
		{"empty secret", "auth:\n  secret_key: \"\"\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateYAML([]byte(tt.doc))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
		})
	}
}

func TestValidateYAML_Empty(t *testing.T) {
	err := config.ValidateYAML([]byte("  \n"))
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
}

func TestValidateYAML_Malformed(t *testing.T) {
	err := config.ValidateYAML([]byte("auth: [unclosed"))
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
	errutil.AssertErrorContext(t, err, "operation", "parse yaml")
}
