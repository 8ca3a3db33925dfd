package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../../pkg/core/xbrl/testdata/instance.xml"

func execute(t *testing.T, args ...string) (string, error) {
	out, _, err := executeWithStderr(t, args...)
	return out, err
}

func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Setenv("TIDYXBRL_STORE_DIR", filepath.Join(t.TempDir(), "runs"))
	t.Setenv("DATABASE_URL", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestXbrlparse_CSV(t *testing.T) {
	out, stderr, err := executeWithStderr(t, fixture)
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 fact(s) referenced unknown contexts [FY9999]")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "context,identifier,startDate,endDate,instant,segment,decimals,unitRef,datacode,datavalue", lines[0])
}

func TestXbrlparse_JSONWithContextFilter(t *testing.T) {
	out, err := execute(t, "--format", "json", "--context", "FI2021Q1", fixture)
	require.NoError(t, err)

	var table struct {
		Columns []string    `json:"columns"`
		Rows    [][]*string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	require.NotEmpty(t, table.Rows)
	for _, row := range table.Rows {
		require.NotNil(t, row[0])
		assert.Equal(t, "FI2021Q1", *row[0])
	}
}

func TestXbrlparse_Save(t *testing.T) {
	out, stderr, err := executeWithStderr(t, "--save", "--format", "text", fixture)
	require.NoError(t, err)
	assert.NotContains(t, out, "saved as run")
	assert.Regexp(t, `instance\.xml: saved as run [0-9a-f-]{36}`, stderr)
}

func TestXbrlparse_Errors(t *testing.T) {
	_, err := execute(t)
	assert.Error(t, err, "path argument required")

	_, err = execute(t, "--format", "xlsx", fixture)
	assert.Error(t, err)

	_, err = execute(t, filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}
