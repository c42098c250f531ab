package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewgraph/backend/internal/maintain"
)

func TestReadRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{"array", `[{"id":"a","name":"A"},{"id":"b","name":"B"}]`, []string{"a", "b"}, false},
		{"json lines", "{\"id\":\"a\",\"name\":\"A\"}\n\n{\"id\":\"b\",\"name\":\"B\"}\n", []string{"a", "b"}, false},
		{"leading whitespace", "\n  [ {\"id\":\"a\",\"name\":\"A\"} ]", []string{"a"}, false},
		{"empty", "   \n", nil, false},
		{"malformed line", "{\"id\":\"a\"}\n{oops}", nil, true},
		{"malformed array", `[{"id":"a"},`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := readRecords(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCmd(t *testing.T) {
	out, err := run(t, "classify", "--json", "Dark Chocolate", "unobtainium")
	require.NoError(t, err)

	var rows []struct {
		Note        string `json:"note"`
		AttributeID string `json:"attribute_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "nutty_cocoa.cocoa.dark_chocolate", rows[0].AttributeID)
	assert.Equal(t, "other.unclassified.other", rows[1].AttributeID)

	_, err = run(t, "classify")
	assert.Error(t, err)
}

func TestIngestThenResync(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRAPH_BACKEND", "memory")
	t.Setenv("SOURCE_DB_PATH", filepath.Join(dir, "products.db"))
	t.Setenv("LOG_LEVEL", "error")

	file := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(strings.Join([]string{
		`{"id":"p1","name":"Nyeri AA","brand":"Onyx","origin":"Kenya","region":"Nyeri","tasting_notes":["blackcurrant"],"roast_level":"light"}`,
		`{"id":"p2","name":"","brand":"Onyx"}`,
		`{"id":"p3","name":"Kiambu","brand":"Onyx","origin":"Kenya"}`,
	}, "\n")), 0o644))

	out, err := run(t, "ingest", "--json", "--file", file)
	require.Error(t, err, "one invalid record fails the run")
	assert.Contains(t, err.Error(), "1 of 3 units failed")

	var report maintain.Report
	require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &report))
	assert.Equal(t, "ingest", report.Operation)
	assert.Equal(t, 3, report.Processed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "p2", report.Errors[0].Unit)

	out, err = run(t, "resync", "--json", "--brand", "onyx")
	require.NoError(t, err)
	report = maintain.Report{}
	require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &report))
	assert.Equal(t, 2, report.Processed)
	assert.Empty(t, report.Errors)

	_, err = run(t, "resync", "--product", "p1", "--brand", "Onyx")
	assert.Error(t, err)
}

func TestIngestRequiresFile(t *testing.T) {
	_, err := run(t, "ingest")
	assert.Error(t, err)
}
