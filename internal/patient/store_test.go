package patient

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"covidtrack/internal/logging"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecordsSkipsBlankAndMalformed(t *testing.T) {
	input := strings.Join([]string{
		"0,Alice,dob,addr,,,No,,",
		"",
		"garbage line",
		"1,Bob,dob,addr,Mall X,noon,Yes,Positive,sick",
		"",
	}, "\n")

	records, errs := ReadRecords(strings.NewReader(input))

	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "Bob", records[1].Name)

	require.Len(t, errs, 1)
	var mre *MalformedRecordError
	require.True(t, errors.As(errs[0], &mre))
	assert.Equal(t, 3, mre.Line)
}

func TestReadRecordsCRLF(t *testing.T) {
	records, errs := ReadRecords(strings.NewReader("0,A,B,C,D,E,F,Negative,ok\r\n\r\n"))
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].Status)
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	records := []Record{{ID: 0, Name: "A"}, {ID: 1, Name: "B", CovidTest: TestNegative}}

	require.NoError(t, WriteRecords(&buf, records))
	assert.Equal(t, "0,A,,,,,,,\n1,B,,,,,,Negative,\n", buf.String())
}

func TestFindIndexByID(t *testing.T) {
	records := []Record{{ID: 4}, {ID: 9}, {ID: 2}}

	for i, rec := range records {
		idx, ok := FindIndexByID(records, rec.ID)
		assert.True(t, ok)
		assert.Equal(t, i, idx)
	}

	for _, missing := range []int{0, 1, 3, 10, -1} {
		idx, ok := FindIndexByID(records, missing)
		assert.False(t, ok, "id %d", missing)
		assert.Equal(t, -1, idx)
	}

	_, ok := FindIndexByID(nil, 0)
	assert.False(t, ok)
}

func TestFindIndexByIDFirstMatch(t *testing.T) {
	records := []Record{{ID: 1, Name: "first"}, {ID: 1, Name: "second"}}
	idx, ok := FindIndexByID(records, 1)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, 0, NextID(nil))
	assert.Equal(t, 1, NextID([]Record{{ID: 0}}))
	assert.Equal(t, 8, NextID([]Record{{ID: 3}, {ID: 7}, {ID: 1}}))
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "patientDetails.csv"))
	records := store.LoadAll()
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStoreLoadUnreadableIsEmpty(t *testing.T) {
	// A directory in place of the file cannot be read as records.
	dir := t.TempDir()
	store := NewStore(dir)
	assert.Empty(t, store.LoadAll())
}

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "patientDetails.csv")
	store := NewStore(path)
	assert.Equal(t, path, store.Path())

	want := []Record{
		sampleRecord(),
		{ID: 8, Name: "Bob", CovidTest: TestNegative},
	}
	require.NoError(t, store.SaveAll(want))

	got := store.LoadAll()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSaveReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patientDetails.csv")
	store := NewStore(path)

	require.NoError(t, store.SaveAll([]Record{{ID: 0, Name: "A"}, {ID: 1, Name: "B"}}))
	require.NoError(t, store.SaveAll([]Record{{ID: 1, Name: "B"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,B,,,,,,,\n", string(data))
}

func TestStoreLoadSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patientDetails.csv")
	content := "0,A,,,,,,,\nnot-a-record\n2,C,,,,,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records := NewStore(path).LoadAll()
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].ID)
	assert.Equal(t, 2, records[1].ID)
}

func TestStoreSaveDropsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patientDetails.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,A,,,,,,,\nnot-a-record\n-1,X,,,,,,,\n2,C,,,,,,,\n"), 0644))

	logsDir := filepath.Join(dir, "logs")
	require.NoError(t, logging.Initialize(logging.Options{LogsDir: logsDir, Audit: true}))
	t.Cleanup(func() { _ = logging.Initialize(logging.Options{}) })

	store := NewStore(path)
	assert.Equal(t, 2, store.Malformed())

	records := store.LoadAll()
	require.Len(t, records, 2)
	require.NoError(t, store.SaveAll(records))
	assert.Zero(t, store.Malformed())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0,A,,,,,,,\n2,C,,,,,,,\n", string(data))

	logging.CloseAudit()
	audit, err := os.ReadFile(filepath.Join(logsDir, "audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"event":"records_dropped"`)
	assert.Contains(t, string(audit), `"count":2`)
}

func TestStoreMalformedMissingFile(t *testing.T) {
	assert.Zero(t, NewStore(filepath.Join(t.TempDir(), "absent.csv")).Malformed())
}
