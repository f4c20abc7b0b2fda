package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestNoteJSONFlattensFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := Note{ID: 7, CreatedAt: created, Fields: datatypes.JSONMap{"text": "hello", "id": "spoofed"}}

	b, err := json.Marshal(n)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "hello", got["text"])
	assert.EqualValues(t, 7, got["id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", got["created_at"])
	assert.NotContains(t, got, "Fields")
}

func TestNoteJSONRoundTripKeepsFields(t *testing.T) {
	var n Note
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"created_at":"2024-03-01T12:00:00Z","text":"hi","tags":["a","b"]}`), &n))

	assert.EqualValues(t, 3, n.ID)
	assert.Equal(t, "hi", n.Fields["text"])
	assert.Equal(t, []any{"a", "b"}, n.Fields["tags"])
	assert.NotContains(t, n.Fields, "id")
}

func TestArticleOmitsUnsetNote(t *testing.T) {
	b, err := json.Marshal(Article{ID: 1, Title: "t", Link: "https://example.com/a"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "note")
}
