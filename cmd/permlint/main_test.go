package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"posadmin/internal/domain/permissions"
)

func writeDoc(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestRun_ShippedTemplateIsClean(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", "../../configs/default_permissions.yaml", "-format", "json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.True(t, out.Validation.IsValid)
	assert.Len(t, out.Roles, len(permissions.AllRoles))
	assert.True(t, out.Roles["counter"].Modules[permissions.ModuleSales].Restrictions.OwnDataOnly)
	assert.Empty(t, out.RoleErrors)
}

func TestRun_SingleRoleYAML(t *testing.T) {
	data, err := json.Marshal(permissions.DefaultTemplate())
	require.NoError(t, err)
	path := writeDoc(t, "org.json", string(data))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path, "-role", "restricted"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "is_valid: true")
	assert.Contains(t, stdout.String(), "restricted:")
	assert.NotContains(t, stdout.String(), "admin:")
}

func TestRun_ReportsShapeErrors(t *testing.T) {
	path := writeDoc(t, "broken.yaml", "modules:\n  sales:\n    enabled: true\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path, "-format", "json"}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	var out report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.False(t, out.Validation.IsValid)
	assert.Equal(t, []string{"modules.sales.actions is required"}, out.Validation.Errors)
}

func TestRun_ReportsUnresolvableRoles(t *testing.T) {
	path := writeDoc(t, "cycle.yaml", `
modules: {}
roles:
  user:
    inherits_from: manager
    special_permissions: []
    module_overrides: {}
    restrictions: {max_records_per_query: 1, rate_limit_per_hour: 1, sensitive_data_access: false}
  manager:
    inherits_from: user
    special_permissions: []
    module_overrides: {}
    restrictions: {max_records_per_query: 1, rate_limit_per_hour: 1, sensitive_data_access: false}
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path, "-format", "json"}, &stdout, &stderr)
	assert.Equal(t, 1, code)

	var out report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "cyclic role inheritance: manager -> user -> manager", out.RoleErrors["manager"])
	assert.Equal(t, "cyclic role inheritance: user -> manager -> user", out.RoleErrors["user"])
}

func TestRun_DumpDefault(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"-default"}, &stdout, &stderr))

	path := writeDoc(t, "default.yaml", stdout.String())
	var again bytes.Buffer
	assert.Equal(t, 0, run([]string{"-file", path}, &again, &stderr))
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-file", "x.yaml", "-format", "xml"}, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"-file", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-bogus"}, &stdout, &stderr))
}
