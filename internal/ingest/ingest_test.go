package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faqbase/faqbot/internal/log"
)

type recordingAdder struct {
	texts []string
	metas []map[string]any
	err   error
}

func (r *recordingAdder) AddDocument(_ context.Context, text string, metadata map[string]any) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.texts = append(r.texts, text)
	r.metas = append(r.metas, metadata)
	return "id-1", nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640))
}

func TestRun_IngestsDocsWithSourceMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "hours.txt", "We are open 9-17.")
	writeDoc(t, dir, "refunds.md", "Refunds within 30 days.")
	writeDoc(t, dir, "ignored.pdf", "binary stuff")

	adder := &recordingAdder{}
	ing := New(adder, 0, log.NewNop())

	report, err := ing.Run(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Ingested)
	assert.Len(t, adder.texts, 2)
	assert.Contains(t, []any{adder.metas[0]["source"], adder.metas[1]["source"]}, "hours.txt")

	for _, meta := range adder.metas {
		date, ok := meta["date"].(string)
		require.True(t, ok, "every document carries an ingestion date")
		stamp, err := time.Parse(time.RFC3339, date)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), stamp, time.Minute)
	}
}

func TestRun_SecondRunSkipsUnchangedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "hours.txt", "We are open 9-17.")

	adder := &recordingAdder{}
	ing := New(adder, 0, log.NewNop())

	_, err := ing.Run(context.Background(), dir, "")
	require.NoError(t, err)
	require.Len(t, adder.texts, 1)

	report, err := ing.Run(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Ingested)
	assert.Len(t, adder.texts, 1, "unchanged file must not be re-embedded")

	// Changing the file makes it eligible again.
	writeDoc(t, dir, "hours.txt", "We are open 8-18 now.")
	report, err = ing.Run(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
}

func TestRun_CreatesSampleDocWhenEmpty(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "docs")
	adder := &recordingAdder{}
	ing := New(adder, 0, log.NewNop())

	report, err := ing.Run(context.Background(), dir, "This is a sample document.")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ingested)
	require.Len(t, adder.texts, 1)
	assert.Equal(t, "This is a sample document.", adder.texts[0])
	assert.FileExists(t, filepath.Join(dir, sampleFile))
}

func TestRun_NoSampleWhenDocsExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "hours.txt", "We are open 9-17.")

	ing := New(&recordingAdder{}, 0, log.NewNop())
	_, err := ing.Run(context.Background(), dir, "sample text")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, sampleFile))
}

func TestRun_AddFailureCountsAndContinues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "hours.txt", "We are open 9-17.")

	adder := &recordingAdder{err: errors.New("store down")}
	ing := New(adder, 0, log.NewNop())

	report, err := ing.Run(context.Background(), dir, "")
	require.NoError(t, err, "per-file failures do not abort the run")
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Ingested)
}

func TestRun_EmptyFilesSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "empty.txt", "   \n")

	adder := &recordingAdder{}
	ing := New(adder, 0, log.NewNop())

	report, err := ing.Run(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, adder.texts)
}

func TestRun_CanceledContextStopsRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "hours.txt", "We are open 9-17.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A tiny rate makes limiter.Wait observe the canceled context.
	ing := New(&recordingAdder{}, 0.001, log.NewNop())
	_, err := ing.Run(ctx, dir, "")
	assert.Error(t, err)
}
