package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/cag2mp4/internal/config"
	"github.com/backmassage/cag2mp4/internal/ffmpeg"
	"github.com/backmassage/cag2mp4/internal/frame"
	"github.com/backmassage/cag2mp4/internal/probe"
	"github.com/backmassage/cag2mp4/internal/volume"
)

// --- Discover tests ---

func TestDiscover_MatchesExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A/1.dcm", "")
	touch(t, dir, "A/sub/2.DCM", "")
	touch(t, dir, "B/not-a-match.txt", "")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A", "1.dcm"),
		filepath.Join(dir, "A", "sub", "2.DCM"),
	}, files)

	again, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, files, again, "order is reproducible")
}

func TestDiscover_OrdersBySegment(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A-b/1.dcm", "")
	touch(t, dir, "A/sub/2.dcm", "")
	touch(t, dir, "A/3.dcm", "")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A", "3.dcm"),
		filepath.Join(dir, "A", "sub", "2.dcm"),
		filepath.Join(dir, "A-b", "1.dcm"),
	}, files)
}

func TestDiscover_EmptyDir(t *testing.T) {
	files, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_Errors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "file.dcm", "")

	for _, root := range []string{filepath.Join(dir, "missing"), filepath.Join(dir, "file.dcm")} {
		_, err := Discover(root)
		var de *DiscoveryError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, root, de.Root)
	}
}

// --- Runner tests ---

func TestRun_ConvertsAndSurvivesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "p1/a.dcm", "4")
	touch(t, dir, "p1/b.dcm", "corrupt")
	touch(t, dir, "p2/c.dcm", "1")

	enc := &fakeEncoder{}
	r := newTestRunner(enc)
	s, err := r.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.False(t, s.Interrupted)
	assert.NotEmpty(t, s.RunID)

	require.Len(t, s.Results, 3)
	assert.True(t, s.Results[0].OK())
	assert.Equal(t, "multi", s.Results[0].Layout)
	assert.Equal(t, 4, s.Results[0].Frames)
	var de *volume.DecodeError
	assert.ErrorAs(t, s.Results[1].Err, &de)
	assert.True(t, s.Results[2].OK())
	assert.Equal(t, "single", s.Results[2].Layout)

	assert.Equal(t, []string{
		filepath.Join(dir, "p1", "a.mp4"),
		filepath.Join(dir, "p2", "c.mp4"),
	}, enc.outputs())
	assert.FileExists(t, filepath.Join(dir, "p1", "a.mp4"))
	assert.NoFileExists(t, filepath.Join(dir, "p1", "b.mp4"))
	assert.FileExists(t, filepath.Join(dir, "p2", "c.mp4"))
	assert.Equal(t, s.Results[0].Bytes+s.Results[2].Bytes, s.OutputBytes())
}

func TestRun_EncodeFailureContinues(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.dcm", "1")
	touch(t, dir, "2.dcm", "1")
	touch(t, dir, "3.dcm", "1")

	enc := &fakeEncoder{failOn: filepath.Join(dir, "2.mp4")}
	s, err := newTestRunner(enc).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Succeeded)
	var ee *ffmpeg.EncodeError
	require.ErrorAs(t, s.Results[1].Err, &ee)
	assert.Len(t, enc.outputs(), 3, "every file reaches the encoder")
	require.Len(t, s.Failures(), 1)
	assert.Equal(t, filepath.Join(dir, "2.dcm"), s.Failures()[0].Source)
}

func TestRun_EmptyDirIsDone(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes.txt", "")

	task := newTestRunner(&fakeEncoder{}).Start(context.Background(), dir)
	updates := collect(task)
	s, err := task.Wait()
	require.NoError(t, err)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.Succeeded)
	last := updates[len(updates)-1]
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, "No source files to convert", last.Status)
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1, "nothing written")
}

func TestRun_UnsetRoot(t *testing.T) {
	enc := &fakeEncoder{}
	task := newTestRunner(enc).Start(context.Background(), "  ")
	updates := collect(task)
	_, err := task.Wait()

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrNoRootDir)
	require.Len(t, updates, 1)
	assert.Equal(t, StateAborted, updates[0].State)
	assert.Equal(t, "Please select a directory", updates[0].Status)
	assert.Empty(t, enc.outputs())
}

func TestRun_MissingRoot(t *testing.T) {
	_, err := newTestRunner(&fakeEncoder{}).Run(context.Background(), filepath.Join(t.TempDir(), "gone"))
	var de *DiscoveryError
	assert.ErrorAs(t, err, &de)
}

func TestStart_ReportsProgressPerFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.dcm", "2")
	touch(t, dir, "b.dcm", "corrupt")
	touch(t, dir, "c.dcm", "2")

	task := newTestRunner(&fakeEncoder{}).Start(context.Background(), dir)
	updates := collect(task)
	s, err := task.Wait()
	require.NoError(t, err)

	var recorded []Progress
	for _, p := range updates {
		if p.State == StateRecorded {
			recorded = append(recorded, p)
		}
	}
	require.Len(t, recorded, 3)
	assert.Equal(t, "Processing: 1/3 (succeeded: 1)", recorded[0].Status)
	assert.Equal(t, "Processing: 2/3 (succeeded: 1)", recorded[1].Status)
	assert.Equal(t, "Processing: 3/3 (succeeded: 2)", recorded[2].Status)
	assert.Equal(t, 1, recorded[1].Failed)
	require.NotNil(t, recorded[1].Result)
	assert.Error(t, recorded[1].Result.Err)

	assert.Equal(t, StateDiscovering, updates[0].State)
	last := updates[len(updates)-1]
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, "Done! 2/3 files converted", last.Status)
	assert.Equal(t, 3, s.Processed())
}

func TestStart_WaitWithoutReading(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2*progressBuffer; i++ {
		touch(t, dir, fmt.Sprintf("%02d.dcm", i), "1")
	}
	s, err := newTestRunner(&fakeEncoder{}).Start(context.Background(), dir).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2*progressBuffer, s.Succeeded)
}

func TestRun_CancelBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.dcm", "1")
	touch(t, dir, "2.dcm", "1")
	touch(t, dir, "3.dcm", "1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &fakeEncoder{after: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	s, err := newTestRunner(enc).Run(ctx, dir)
	require.NoError(t, err)

	assert.True(t, s.Interrupted)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Processed())
	assert.Equal(t, 1, s.Succeeded)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.dcm", "2")

	enc := &fakeEncoder{}
	rec := &fakeRecorder{}
	r := newTestRunner(enc)
	r.DryRun = true
	r.Metrics = rec
	s, err := r.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Succeeded)
	assert.True(t, s.DryRun)
	assert.Equal(t, 2, s.Results[0].Frames)
	assert.Empty(t, enc.outputs())
	assert.NoFileExists(t, filepath.Join(dir, "a.mp4"))

	// Nothing was encoded, so no frames are counted.
	assert.Equal(t, []bool{true}, rec.files)
	assert.Zero(t, rec.frames)
}

func TestRun_ResolvesOutputCollisions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.dcm", "1")
	touch(t, dir, "a.DCM", "1")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	if len(entries) < 2 {
		t.Skip("case-insensitive filesystem")
	}

	enc := &fakeEncoder{}
	s, err := newTestRunner(enc).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Succeeded)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "a - dup1.mp4"),
	}, enc.outputs())
}

func TestRun_VerifierAndMetrics(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.dcm", "2")
	touch(t, dir, "b.dcm", "5")

	rec := &fakeRecorder{}
	r := newTestRunner(&fakeEncoder{})
	r.Metrics = rec
	r.Verifier = verifierFunc(func(_ context.Context, path string, frames, _, _ int) error {
		if frames == 5 {
			return fmt.Errorf("%w: 4 frames, want 5", probe.ErrMismatch)
		}
		return nil
	})
	s, err := r.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Succeeded)
	assert.ErrorIs(t, s.Results[1].Err, probe.ErrMismatch)
	assert.Equal(t, []bool{true, false}, rec.files)
	assert.Equal(t, 2, rec.frames)
	assert.Equal(t, 2, rec.stages["decode"])
	assert.Equal(t, 2, rec.stages["encode"])
	assert.Equal(t, 2, rec.stages["verify"])
}

func TestRun_VerifiesStoredSize(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "odd.dcm", "")

	// Two 5 wide by 7 high frames.
	reader := volume.ReaderFunc(func(string) (volume.Array, error) {
		a := volume.Array{Kind: frame.Uint16, Shape: []int{2, 7, 5}, Data: make([]float64, 2*7*5)}
		for i := range a.Data {
			a.Data[i] = float64(i)
		}
		return a, nil
	})
	cfg := config.DefaultConfig()
	r := NewRunner(&cfg, &recordLogger{}, volume.NewDecoder(reader), &fakeEncoder{padOdd: true})
	var gotW, gotH int
	r.Verifier = verifierFunc(func(_ context.Context, _ string, _, width, height int) error {
		gotW, gotH = width, height
		return nil
	})

	s, err := r.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 6, gotW)
	assert.Equal(t, 8, gotH)

	res := s.Results[0]
	assert.True(t, res.Padded)
	assert.Equal(t, 6, res.Width)
	assert.Equal(t, 8, res.Height)
}

func TestRun_RecoversFromPanics(t *testing.T) {
	t.Run("decoder", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"1.dcm", "2.dcm", "3.dcm"} {
			touch(t, dir, name, "2")
		}
		inner := fakeReader()
		reader := volume.ReaderFunc(func(path string) (volume.Array, error) {
			if filepath.Base(path) == "2.dcm" {
				panic("pixel table out of range")
			}
			return inner.Read(path)
		})
		cfg := config.DefaultConfig()
		enc := &fakeEncoder{}
		r := NewRunner(&cfg, &recordLogger{}, volume.NewDecoder(reader), enc)

		s, err := r.Run(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Processed())
		assert.Equal(t, 2, s.Succeeded)
		assert.Equal(t, 1, s.Failed)

		var de *volume.DecodeError
		require.ErrorAs(t, s.Results[1].Err, &de)
		assert.Equal(t, filepath.Join(dir, "2.dcm"), de.Path)
		assert.ErrorIs(t, s.Results[1].Err, ErrPanic)
		assert.Equal(t, []string{
			filepath.Join(dir, "1.mp4"),
			filepath.Join(dir, "3.mp4"),
		}, enc.outputs())
	})

	t.Run("encoder", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"1.dcm", "2.dcm", "3.dcm"} {
			touch(t, dir, name, "2")
		}
		enc := &fakeEncoder{panicOn: filepath.Join(dir, "2.mp4")}
		s, err := newTestRunner(enc).Run(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Succeeded)

		var ee *ffmpeg.EncodeError
		require.ErrorAs(t, s.Results[1].Err, &ee)
		assert.Equal(t, filepath.Join(dir, "2.mp4"), ee.Path)
		assert.ErrorIs(t, s.Results[1].Err, ErrPanic)
		assert.True(t, s.Results[2].OK())
	})
}

// TestRun_EncodesWithFFmpeg drives the real encoder and verifier over
// synthetic volumes.
func TestRun_EncodesWithFFmpeg(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skip(bin + " not available")
		}
	}
	dir := t.TempDir()
	touch(t, dir, "a.dcm", "4")
	touch(t, dir, "b.dcm", "corrupt")
	touch(t, dir, "c.dcm", "1")

	cfg := config.DefaultConfig()
	log := &recordLogger{}
	r := NewRunner(&cfg, log, volume.NewDecoder(fakeReader()), ffmpeg.NewEncoder(&cfg, log))
	r.Verifier = probe.NewVerifier(cfg.FFprobePath)

	s, err := r.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.FileExists(t, filepath.Join(dir, "a.mp4"))
	assert.NoFileExists(t, filepath.Join(dir, "b.mp4"))
	assert.FileExists(t, filepath.Join(dir, "c.mp4"))
	assert.Positive(t, s.OutputBytes())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "recorded", StateRecorded.String())
	assert.Equal(t, "state(42)", State(42).String())
}

// --- Helpers ---

// fakeReader serves synthetic volumes: the file body is the frame count
// (avoid 3, which classifies as a color frame) and "corrupt" fails like an
// unparsable file.
func fakeReader() volume.Reader {
	return volume.ReaderFunc(func(path string) (volume.Array, error) {
		body, err := os.ReadFile(path)
		if err != nil {
			return volume.Array{}, err
		}
		var n int
		if _, err := fmt.Sscanf(string(body), "%d", &n); err != nil {
			return volume.Array{}, fmt.Errorf("not a DICOM file")
		}
		const h, w = 16, 16
		a := volume.Array{Kind: frame.Uint16, Data: make([]float64, n*h*w)}
		for i := range a.Data {
			a.Data[i] = float64(i % 4096)
		}
		if n == 1 {
			a.Shape = []int{h, w}
		} else {
			a.Shape = []int{n, h, w}
		}
		return a, nil
	})
}

func newTestRunner(enc *fakeEncoder) *Runner {
	cfg := config.DefaultConfig()
	return NewRunner(&cfg, &recordLogger{}, volume.NewDecoder(fakeReader()), enc)
}

// fakeEncoder writes a small text file per output. With padOdd it reports
// odd frame sizes as padded to even, like the real encoder's retry.
type fakeEncoder struct {
	mu      sync.Mutex
	written []string
	failOn  string
	panicOn string
	padOdd  bool
	after   func(n int)
}

func (f *fakeEncoder) Encode(_ context.Context, seq frame.Sequence, out string) (ffmpeg.Video, error) {
	f.mu.Lock()
	f.written = append(f.written, out)
	n := len(f.written)
	f.mu.Unlock()
	if f.after != nil {
		defer f.after(n)
	}
	switch out {
	case f.failOn:
		return ffmpeg.Video{}, &ffmpeg.EncodeError{Path: out, Op: "finalize", Stderr: "Conversion failed!", Err: errors.New("exit status 1")}
	case f.panicOn:
		panic("encoder state corrupted")
	}
	w, h := seq.Size()
	v := ffmpeg.Video{Width: w, Height: h, Frames: len(seq)}
	if f.padOdd && (w%2 != 0 || h%2 != 0) {
		v.Width, v.Height, v.Padded = w+w%2, h+h%2, true
	}
	return v, os.WriteFile(out, []byte(fmt.Sprintf("%d frames", len(seq))), 0o644)
}

func (f *fakeEncoder) outputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

type verifierFunc func(ctx context.Context, path string, frames, width, height int) error

func (v verifierFunc) Verify(ctx context.Context, path string, frames, width, height int) error {
	return v(ctx, path, frames, width, height)
}

type fakeRecorder struct {
	files  []bool
	frames int
	stages map[string]int
}

func (f *fakeRecorder) ObserveStage(stage string, _ time.Duration) {
	if f.stages == nil {
		f.stages = make(map[string]int)
	}
	f.stages[stage]++
}

func (f *fakeRecorder) FileDone(ok bool, frames int) {
	f.files = append(f.files, ok)
	if ok {
		f.frames += frames
	}
}

type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordLogger) Info(f string, a ...interface{})    { l.add("INFO", f, a...) }
func (l *recordLogger) Success(f string, a ...interface{}) { l.add("SUCCESS", f, a...) }
func (l *recordLogger) Warn(f string, a ...interface{})    { l.add("WARN", f, a...) }
func (l *recordLogger) Error(f string, a ...interface{})   { l.add("ERROR", f, a...) }
func (l *recordLogger) Debug(v bool, f string, a ...interface{}) {
	if v {
		l.add("DEBUG", f, a...)
	}
}

func collect(t *Task) []Progress {
	var out []Progress
	for p := range t.Progress() {
		out = append(out, p)
	}
	return out
}

func touch(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
