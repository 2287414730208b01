// Package category rebuilds hierarchical category paths from the flat,
// parent-pointer list BigCommerce returns. Upstream sometimes references
// parents it never lists; a fallback table fills those gaps.
package category

import (
	"slices"
	"sort"
	"strings"

	"github.com/ifuryst/lol"
)

// Separator joins path segments
const Separator = " > "

// DefaultCatchAll is the bucket name ranked below any specific category
const DefaultCatchAll = "Shop All"

type Category struct {
	ID       int64
	Name     string
	ParentID int64
}

// Fallback stands in for a category id that is referenced but missing
type Fallback struct {
	Name     string
	ParentID int64
}

type Fallbacks map[int64]Fallback

// DefaultFallbacks returns the built-in table of known missing categories
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		129: {Name: "Universal Quick Attach", ParentID: 24},
	}
}

// Merge returns a copy of f with extra entries applied on top
func (f Fallbacks) Merge(extra Fallbacks) Fallbacks {
	out := make(Fallbacks, len(f)+len(extra))
	for id, fb := range f {
		out[id] = fb
	}
	for id, fb := range extra {
		out[id] = fb
	}
	return out
}

// Reconstructor resolves paths against one category snapshot
type Reconstructor struct {
	index     map[int64]Category
	fallbacks Fallbacks
	catchAll  map[string]struct{}
}

func NewReconstructor(categories []Category, fallbacks Fallbacks, catchAllNames ...string) *Reconstructor {
	if len(catchAllNames) == 0 {
		catchAllNames = []string{DefaultCatchAll}
	}
	r := &Reconstructor{
		index:     make(map[int64]Category, len(categories)),
		fallbacks: fallbacks,
		catchAll:  make(map[string]struct{}, len(catchAllNames)),
	}
	for _, c := range categories {
		r.index[c.ID] = c
	}
	for _, name := range catchAllNames {
		r.catchAll[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return r
}

// Segments walks from id up to its root. The walk stops at a root, a
// repeated id, or a missing id with no fallback.
func (r *Reconstructor) Segments(id int64) []string {
	var segments []string
	visited := make(map[int64]struct{})
	for id != 0 {
		if _, seen := visited[id]; seen {
			break
		}
		visited[id] = struct{}{}

		if c, ok := r.index[id]; ok {
			segments = append(segments, c.Name)
			id = c.ParentID
			continue
		}
		fb, ok := r.fallbacks[id]
		if !ok {
			break
		}
		segments = append(segments, fb.Name)
		id = fb.ParentID
	}
	slices.Reverse(segments)
	return segments
}

// Path is Segments joined with Separator
func (r *Reconstructor) Path(id int64) string {
	return strings.Join(r.Segments(id), Separator)
}

func (r *Reconstructor) isCatchAll(name string) bool {
	_, ok := r.catchAll[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

type candidate struct {
	segments []string
	catchAll bool
}

// Best picks the most specific path among the candidate ids, or "" if
// none resolves
func (r *Reconstructor) Best(candidateIDs []int64) string {
	seen := make(map[int64]struct{}, len(candidateIDs))
	var found []candidate
	for _, id := range candidateIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		segs := r.Segments(id)
		if len(segs) == 0 {
			continue
		}
		found = append(found, candidate{segments: segs, catchAll: r.isCatchAll(segs[len(segs)-1])})
	}
	if len(found) == 0 {
		return ""
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].catchAll != found[j].catchAll {
			return !found[i].catchAll
		}
		return len(found[i].segments) > len(found[j].segments)
	})
	return strings.Join(found[0].segments, Separator)
}

// All returns every category's path, sorted with duplicates removed
func (r *Reconstructor) All() []string {
	paths := make([]string, 0, len(r.index))
	for id := range r.index {
		if p := r.Path(id); p != "" {
			paths = append(paths, p)
		}
	}
	paths = lol.UniqSlice(paths)
	sort.Strings(paths)
	return paths
}

// BuildPathForCategory returns the best path for a product's category ids
func BuildPathForCategory(categories []Category, candidateIDs []int64, fallbacks Fallbacks) string {
	return NewReconstructor(categories, fallbacks).Best(candidateIDs)
}

// BuildAllPaths returns the sorted, de-duplicated path of every category
func BuildAllPaths(categories []Category, fallbacks Fallbacks) []string {
	return NewReconstructor(categories, fallbacks).All()
}
