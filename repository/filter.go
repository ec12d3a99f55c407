package repository

import (
	"strings"

	"github.com/ammiranda/treepath/models"
)

// Op identifies the predicate of a Condition
type Op int

const (
	// OpIDIn matches entities whose id is one of IDs
	OpIDIn Op = iota
	// OpIDNot matches entities whose id differs from IDs[0]
	OpIDNot
	// OpPathEquals matches entities whose path equals Path
	OpPathEquals
	// OpPathPrefix matches entities whose path starts with Path
	OpPathPrefix
	// OpParentIsNull matches roots
	OpParentIsNull
	// OpParentEquals matches entities whose parent id equals IDs[0]
	OpParentEquals
)

func (o Op) String() string {
	switch o {
	case OpIDIn:
		return "id_in"
	case OpIDNot:
		return "id_not"
	case OpPathEquals:
		return "path_equals"
	case OpPathPrefix:
		return "path_prefix"
	case OpParentIsNull:
		return "parent_is_null"
	case OpParentEquals:
		return "parent_equals"
	default:
		return "unknown"
	}
}

// Condition is a single predicate over the tree columns of an entity
type Condition[ID comparable] struct {
	Op   Op
	Path string
	IDs  []ID
}

// IDIn matches entities whose id is in ids. With no ids it matches nothing.
func IDIn[ID comparable](ids ...ID) Condition[ID] {
	return Condition[ID]{Op: OpIDIn, IDs: ids}
}

// IDNot matches every entity except the one with the given id
func IDNot[ID comparable](id ID) Condition[ID] {
	return Condition[ID]{Op: OpIDNot, IDs: []ID{id}}
}

// PathEquals matches entities stored with exactly this path
func PathEquals[ID comparable](path string) Condition[ID] {
	return Condition[ID]{Op: OpPathEquals, Path: path}
}

// PathPrefix matches entities whose path begins with prefix
func PathPrefix[ID comparable](prefix string) Condition[ID] {
	return Condition[ID]{Op: OpPathPrefix, Path: prefix}
}

// ParentIsNull matches root entities
func ParentIsNull[ID comparable]() Condition[ID] {
	return Condition[ID]{Op: OpParentIsNull}
}

// ParentEquals matches direct children of the entity with the given id
func ParentEquals[ID comparable](id ID) Condition[ID] {
	return Condition[ID]{Op: OpParentEquals, IDs: []ID{id}}
}

// Matches evaluates the condition against an entity
func (c Condition[ID]) Matches(e models.Entity[ID]) bool {
	switch c.Op {
	case OpIDIn:
		for _, id := range c.IDs {
			if e.GetID() == id {
				return true
			}
		}
		return false
	case OpIDNot:
		return len(c.IDs) == 1 && e.GetID() != c.IDs[0]
	case OpPathEquals:
		return e.GetPath() == c.Path
	case OpPathPrefix:
		return strings.HasPrefix(e.GetPath(), c.Path)
	case OpParentIsNull:
		return e.GetParentID() == nil
	case OpParentEquals:
		parent := e.GetParentID()
		return parent != nil && len(c.IDs) == 1 && *parent == c.IDs[0]
	default:
		return false
	}
}

// Filter is a conjunction of conditions. The zero Filter matches everything.
type Filter[ID comparable] struct {
	Conditions []Condition[ID]
}

// And returns a copy of the filter with extra conditions appended
func (f Filter[ID]) And(conds ...Condition[ID]) Filter[ID] {
	merged := make([]Condition[ID], 0, len(f.Conditions)+len(conds))
	merged = append(merged, f.Conditions...)
	merged = append(merged, conds...)
	return Filter[ID]{Conditions: merged}
}

// Matches reports whether an entity satisfies every condition
func (f Filter[ID]) Matches(e models.Entity[ID]) bool {
	for _, c := range f.Conditions {
		if !c.Matches(e) {
			return false
		}
	}
	return true
}

// Empty reports whether the filter provably matches nothing, which lets
// callers skip the store round trip.
func (f Filter[ID]) Empty() bool {
	for _, c := range f.Conditions {
		if c.Op == OpIDIn && len(c.IDs) == 0 {
			return true
		}
	}
	return false
}
