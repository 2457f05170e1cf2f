package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Counts(t *testing.T) {
	r := NewRun()
	r.FileDone(true, 12)
	r.FileDone(false, 0)
	r.FileDone(true, 3)
	r.ObserveStage("decode", 200*time.Millisecond)
	r.ObserveStage("encode", 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.FilesTotal.WithLabelValues("converted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilesTotal.WithLabelValues("failed")))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.FramesEncoded))
	assert.Equal(t, 2, testutil.CollectAndCount(r.StageDuration))
}

func TestRun_IndependentRegistries(t *testing.T) {
	a, b := NewRun(), NewRun()
	a.FileDone(true, 1)
	assert.Zero(t, testutil.ToFloat64(b.FramesEncoded))
}

func TestRun_WriteFile(t *testing.T) {
	r := NewRun()
	r.FileDone(true, 4)
	r.Finish(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "cag2mp4.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `cag2mp4_files_total{status="converted"} 1`))
	assert.True(t, strings.Contains(text, "cag2mp4_frames_encoded_total 4"))
	assert.True(t, strings.Contains(text, "# TYPE cag2mp4_last_run_timestamp_seconds gauge"))
}
