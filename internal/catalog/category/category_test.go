package category

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() []Category {
	return []Category{
		{ID: 23, Name: "Shop All"},
		{ID: 24, Name: "Attachments"},
		{ID: 58, Name: "Buckets", ParentID: 24},
		{ID: 60, Name: "Smooth Buckets", ParentID: 58},
	}
}

func TestBuildPathForCategory_PrefersSpecificOverCatchAll(t *testing.T) {
	got := BuildPathForCategory(sample(), []int64{23, 24, 60, 58}, nil)
	assert.Equal(t, "Attachments > Buckets > Smooth Buckets", got)
}

func TestBuildPathForCategory_FallbackFillsMissingParent(t *testing.T) {
	cats := sample()
	cats[2].ParentID = 129

	got := BuildPathForCategory(cats, []int64{23, 24, 60, 58}, DefaultFallbacks())
	assert.Equal(t, "Attachments > Universal Quick Attach > Buckets > Smooth Buckets", got)

	// without the fallback the walk stops at the gap
	got = BuildPathForCategory(cats, []int64{60}, nil)
	assert.Equal(t, "Buckets > Smooth Buckets", got)
}

func TestSegments_DepthMatchesChain(t *testing.T) {
	var cats []Category
	for i := int64(1); i <= 6; i++ {
		cats = append(cats, Category{ID: i, Name: string(rune('A' + i - 1)), ParentID: i - 1})
	}
	r := NewReconstructor(cats, nil)
	for i := int64(1); i <= 6; i++ {
		path := r.Path(i)
		assert.Len(t, strings.Split(path, Separator), int(i), path)
	}
	assert.Equal(t, "A > B > C", r.Path(3))
}

func TestSegments_CyclesTerminate(t *testing.T) {
	cats := []Category{
		{ID: 1, Name: "A", ParentID: 2},
		{ID: 2, Name: "B", ParentID: 1},
		{ID: 3, Name: "Self", ParentID: 3},
	}
	r := NewReconstructor(cats, nil)
	assert.Equal(t, "A > B", r.Path(2))
	assert.Equal(t, "B > A", r.Path(1))
	assert.Equal(t, "Self", r.Path(3))

	// a fallback pointing back into the chain is also guarded
	fb := Fallbacks{9: {Name: "Ghost", ParentID: 10}}
	r = NewReconstructor([]Category{{ID: 10, Name: "Real", ParentID: 9}}, fb)
	assert.Equal(t, "Ghost > Real", r.Path(10))
}

func TestBest_EdgeCases(t *testing.T) {
	r := NewReconstructor(sample(), nil)
	assert.Equal(t, "", r.Best(nil))
	assert.Equal(t, "", r.Best([]int64{999}))
	// only catch-all available
	assert.Equal(t, "Shop All", r.Best([]int64{23}))
	// ties keep the first candidate
	r = NewReconstructor([]Category{{ID: 1, Name: "X"}, {ID: 2, Name: "Y"}}, nil)
	assert.Equal(t, "Y", r.Best([]int64{2, 1, 2}))
}

func TestBest_CatchAllIsCaseInsensitiveAndConfigurable(t *testing.T) {
	cats := []Category{
		{ID: 1, Name: "shop all"},
		{ID: 2, Name: "Tools"},
		{ID: 3, Name: "Everything", ParentID: 2},
		{ID: 4, Name: "Hammers", ParentID: 2},
	}
	assert.Equal(t, "Tools", BuildPathForCategory(cats, []int64{1, 2}, nil))

	r := NewReconstructor(cats, nil, "Everything")
	assert.Equal(t, "Tools > Hammers", r.Best([]int64{3, 4}))
}

func TestEmptyNamesStayAsSegments(t *testing.T) {
	r := NewReconstructor([]Category{{ID: 1, Name: ""}, {ID: 2, Name: "Leaf", ParentID: 1}}, nil)
	assert.Equal(t, " > Leaf", r.Path(2))
}

func TestBuildAllPaths(t *testing.T) {
	cats := append(sample(), Category{ID: 61, Name: "Smooth Buckets", ParentID: 58})
	got := BuildAllPaths(cats, nil)
	assert.Equal(t, []string{
		"Attachments",
		"Attachments > Buckets",
		"Attachments > Buckets > Smooth Buckets",
		"Shop All",
	}, got)
}

func TestFallbacksMerge(t *testing.T) {
	merged := DefaultFallbacks().Merge(Fallbacks{7: {Name: "Seven"}})
	assert.Len(t, merged, 2)
	assert.Equal(t, "Universal Quick Attach", merged[129].Name)
	assert.Len(t, DefaultFallbacks(), 1)
}
