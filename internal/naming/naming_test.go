package naming

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{filepath.Join("A", "1.dcm"), filepath.Join("A", "1.mp4")},
		{filepath.Join("A", "sub", "2.DCM"), filepath.Join("A", "sub", "2.mp4")},
		{filepath.Join("B", "run.v2.dcm"), filepath.Join("B", "run.v2.mp4")},
		{filepath.Join("B", "noext"), filepath.Join("B", "noext.mp4")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.src, "mp4"))
		})
	}
}

func TestCollisionResolver(t *testing.T) {
	cr := NewCollisionResolver()
	out := filepath.Join("A", "1.mp4")
	dup := func(n string) string { return filepath.Join("A", "1 - dup"+n+".mp4") }

	assert.Equal(t, out, cr.Resolve("A/1.dcm", out))
	assert.Equal(t, out, cr.Resolve("A/1.dcm", out), "same source keeps its path")
	assert.Equal(t, dup("1"), cr.Resolve("A/1.DCM", out))
	assert.Equal(t, dup("2"), cr.Resolve("A/1.Dcm", out))
	assert.Equal(t, dup("1"), cr.Resolve("A/1.DCM", out), "resolution is stable per source")
	assert.Equal(t, dup("2"), cr.Resolve("A/1.Dcm", out))
	assert.Equal(t, out, cr.Resolve("A/1.dcm", out))

	other := filepath.Join("B", "1.mp4")
	assert.Equal(t, other, cr.Resolve("B/1.dcm", other), "other directories are independent")
}

func TestCollisionResolver_DupNameAlreadyClaimed(t *testing.T) {
	cr := NewCollisionResolver()
	out := filepath.Join("A", "1.mp4")
	dup1 := filepath.Join("A", "1 - dup1.mp4")

	assert.Equal(t, dup1, cr.Resolve("A/1 - dup1.dcm", dup1))
	assert.Equal(t, out, cr.Resolve("A/1.dcm", out))
	assert.Equal(t, filepath.Join("A", "1 - dup2.mp4"), cr.Resolve("A/1.DCM", out))
	assert.Equal(t, filepath.Join("A", "1 - dup1 - dup1.mp4"), cr.Resolve("A/1 - dup1.DCM", dup1))
}
