package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ammiranda/treepath/models"
)

func TestConditionMatches(t *testing.T) {
	parent := int64(2)
	node := &models.Category{ID: 5, Path: "|1|2|", Level: 2, ParentID: &parent}
	root := &models.Category{ID: 1}

	testCases := []struct {
		name     string
		cond     Condition[int64]
		entity   *models.Category
		expected bool
	}{
		{"id in", IDIn[int64](4, 5), node, true},
		{"id not in", IDIn[int64](4), node, false},
		{"empty id in", IDIn[int64](), node, false},
		{"id not", IDNot[int64](5), node, false},
		{"id not other", IDNot[int64](6), node, true},
		{"path equals", PathEquals[int64]("|1|2|"), node, true},
		{"path differs", PathEquals[int64]("|1|"), node, false},
		{"path prefix", PathPrefix[int64]("|1|"), node, true},
		{"path prefix of longer id", PathPrefix[int64]("|1|2|5|"), node, false},
		{"root has null parent", ParentIsNull[int64](), root, true},
		{"child has parent", ParentIsNull[int64](), node, false},
		{"parent equals", ParentEquals[int64](2), node, true},
		{"parent equals on root", ParentEquals[int64](2), root, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cond.Matches(tc.entity))
		})
	}
}

func TestFilter(t *testing.T) {
	var zero Filter[int64]
	assert.True(t, zero.Matches(&models.Category{ID: 1}))
	assert.False(t, zero.Empty())

	base := zero.And(PathEquals[int64](""))
	narrowed := base.And(IDNot[int64](1))
	assert.Len(t, base.Conditions, 1, "And must not mutate the receiver")
	assert.Len(t, narrowed.Conditions, 2)

	assert.True(t, base.Matches(&models.Category{ID: 1}))
	assert.False(t, narrowed.Matches(&models.Category{ID: 1}))
	assert.True(t, narrowed.Matches(&models.Category{ID: 3}))

	assert.True(t, narrowed.And(IDIn[int64]()).Empty())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "path_prefix", OpPathPrefix.String())
	assert.Equal(t, "parent_is_null", OpParentIsNull.String())
	assert.Equal(t, "unknown", Op(99).String())
}
