package models

import "time"

// Category is a labelled node of the category tree
type Category struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Path      string    `json:"path"`
	Level     int       `json:"level"`
	ParentID  *int64    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var _ Entity[int64] = (*Category)(nil)

// NewCategory creates an unsaved root category with the given label
func NewCategory(label string) *Category {
	return &Category{Label: label}
}

func (c *Category) GetID() int64 {
	return c.ID
}

func (c *Category) GetPath() string {
	return c.Path
}

func (c *Category) SetPath(path string) {
	c.Path = path
}

func (c *Category) GetLevel() int {
	return c.Level
}

func (c *Category) SetLevel(level int) {
	c.Level = level
}

func (c *Category) GetParentID() *int64 {
	return c.ParentID
}

func (c *Category) SetParentID(id *int64) {
	c.ParentID = id
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

