package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"voxeval/internal/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTranscript_Native(t *testing.T) {
	path := writeFile(t, "t.json", `{
		"language": "en-US",
		"segments": [{"start": 0, "end": 1, "text": "hello there",
			"words": [{"word": "hello", "start": 0, "end": 0.4, "confidence": 0.9},
			          {"word": "there", "start": 0.5, "end": 1, "confidence": 0.8}]}]
	}`)

	tr, err := loadTranscript(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "en-US", tr.Language)
	require.Len(t, tr.Words(), 2)
	assert.Equal(t, "hello there", tr.FullText())
}

func TestLoadTranscript_SpeechKit(t *testing.T) {
	path := writeFile(t, "sk.json", `{"chunks": [{"channelTag": "1", "alternatives": [{
		"text": "good morning",
		"words": [{"startTime": "0.100s", "endTime": "0.500s", "word": "good", "confidence": 1},
		          {"startTime": "0.600s", "endTime": "1.100s", "word": "morning", "confidence": 1}]}]}]}`)

	tr, err := loadTranscript(path, "speechkit", "en-GB")
	require.NoError(t, err)
	assert.Equal(t, "en-GB", tr.Language)
	words := tr.Words()
	require.Len(t, words, 2)
	assert.InDelta(t, 0.6, words[1].Start, 1e-9)
}

func TestLoadTranscript_Errors(t *testing.T) {
	_, err := loadTranscript(filepath.Join(t.TempDir(), "missing.json"), "", "")
	assert.Error(t, err)

	bad := writeFile(t, "bad.json", "{")
	_, err = loadTranscript(bad, "transcript", "")
	assert.Error(t, err)

	_, err = loadTranscript(bad, "srt", "")
	assert.ErrorContains(t, err, "unknown transcript format")
}

type failingTranscoder struct {
	calls int
}

func (f *failingTranscoder) ToWAV(context.Context, string, string) error {
	f.calls++
	return errors.New("ffmpeg exploded")
}

func TestLoadAudio_TranscodesNonWAV(t *testing.T) {
	scope, err := audio.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	tc := &failingTranscoder{}
	_, err = loadAudio(context.Background(), "voice.ogg", scope, tc)
	assert.ErrorContains(t, err, "ffmpeg exploded")
	assert.Equal(t, 1, tc.calls)
}

func TestLoadAudio_WAVSkipsTranscoder(t *testing.T) {
	scope, err := audio.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	tc := &failingTranscoder{}
	_, err = loadAudio(context.Background(), filepath.Join(t.TempDir(), "missing.WAV"), scope, tc)
	assert.Error(t, err)
	assert.Zero(t, tc.calls)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := writeReport(dir, "../escape.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}
