package naming

import (
	"path/filepath"
	"strings"
)

// OutputPath returns the video path for src: same directory, same stem,
// with ext (no dot) replacing the source extension.
//
//	/studies/p1/run1.dcm  ->  /studies/p1/run1.mp4
//	/studies/p1/run1      ->  /studies/p1/run1.mp4
func OutputPath(src, ext string) string {
	stem := strings.TrimSuffix(src, filepath.Ext(src))
	return stem + "." + ext
}
