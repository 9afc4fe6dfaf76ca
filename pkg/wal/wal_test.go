package wal

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func TestWriteThenReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")

	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(testEntry{Seq: 1, Note: "a"}))
	require.NoError(t, w.Write(testEntry{Seq: 2, Note: "b"}))
	require.NoError(t, w.Close())

	// 重新開啟後全部讀回，順序不變
	w2, err := NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()

	var entries []testEntry
	err = w2.ReadAll(func(raw []byte) error {
		var entry testEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, testEntry{Seq: 1, Note: "a"}, entries[0])
	assert.Equal(t, testEntry{Seq: 2, Note: "b"}, entries[1])
}

func TestReadAllEmptyFile(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "empty.wal"))
	require.NoError(t, err)
	defer w.Close()

	calls := 0
	require.NoError(t, w.ReadAll(func([]byte) error {
		calls++
		return nil
	}))
	assert.Zero(t, calls)
}
