package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Label    string `json:"label" validate:"required,min=1,max=100"`
	ParentID *int64 `json:"parentId,omitempty" validate:"omitempty,gt=0"`
}

// UpdateCategoryRequest represents the request body for renaming a category
type UpdateCategoryRequest struct {
	Label string `json:"label" validate:"required,min=1,max=100"`
}

// MoveCategoryRequest represents the request body for reparenting a
// category. A null parent id makes the category a root.
type MoveCategoryRequest struct {
	ParentID *int64 `json:"parentId" validate:"omitempty,gt=0"`
}

// Validate validates the create category request
func (r *CreateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the update category request
func (r *UpdateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the move category request
func (r *MoveCategoryRequest) Validate() error {
	return validate.Struct(r)
}
