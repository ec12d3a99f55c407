package models

import (
	"errors"
	"sort"
)

// ErrTreeNotFound is returned when a forest is built from no roots
var ErrTreeNotFound = errors.New("tree not found")

// TreeNode is the nested rendering of a category and its subtree
type TreeNode struct {
	ID       int64       `json:"id"`
	Label    string      `json:"label"`
	Level    int         `json:"level"`
	Children []*TreeNode `json:"children"`
}

// NewTreeNode creates a childless rendering of a category
func NewTreeNode(c *Category) *TreeNode {
	return &TreeNode{
		ID:       c.ID,
		Label:    c.Label,
		Level:    c.Level,
		Children: make([]*TreeNode, 0),
	}
}

// AddChild adds a child node to the current node
func (n *TreeNode) AddChild(child *TreeNode) {
	n.Children = append(n.Children, child)
}

// BuildForest nests a flat list of categories by parent id. Categories
// whose parent is missing from the list become tops of the result, which
// lets a subtree (a node plus its descendants) render with the node on top.
// Siblings are ordered by id.
func BuildForest(categories []*Category) ([]*TreeNode, error) {
	if len(categories) == 0 {
		return nil, ErrTreeNotFound
	}

	sorted := make([]*Category, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	nodeMap := make(map[int64]*TreeNode, len(sorted))
	for _, c := range sorted {
		nodeMap[c.ID] = NewTreeNode(c)
	}

	var tops []*TreeNode
	for _, c := range sorted {
		node := nodeMap[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodeMap[*c.ParentID]; ok {
				parent.AddChild(node)
				continue
			}
		}
		tops = append(tops, node)
	}

	if len(tops) == 0 {
		return nil, ErrTreeNotFound
	}
	return tops, nil
}
