package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CollisionResolver hands out distinct output paths within one run. Sources
// whose names differ only in extension case (1.dcm, 1.DCM) request the same
// video; the first keeps it and later ones get " - dupN" siblings in the same
// directory. A source always gets back its first answer.
//
// The runner resolves files one at a time, so there is no locking.
type CollisionResolver struct {
	bySource map[string]string // source -> assigned output
	claimed  map[string]bool
}

// NewCollisionResolver returns an empty resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		bySource: make(map[string]string),
		claimed:  make(map[string]bool),
	}
}

// Resolve returns the output path for source, preferring requested.
func (cr *CollisionResolver) Resolve(source, requested string) string {
	if out, ok := cr.bySource[source]; ok {
		return out
	}

	out := requested
	ext := filepath.Ext(requested)
	stem := strings.TrimSuffix(requested, ext)
	for n := 1; cr.claimed[out]; n++ {
		out = fmt.Sprintf("%s - dup%d%s", stem, n, ext)
	}

	cr.bySource[source] = out
	cr.claimed[out] = true
	return out
}
