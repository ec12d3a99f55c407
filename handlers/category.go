package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ammiranda/treepath/models"
	"github.com/ammiranda/treepath/repository"
	"github.com/ammiranda/treepath/service"
)

// errInvalidID is returned for a non-numeric or non-positive :id
var errInvalidID = errors.New("invalid category id")

// CategoryHandler handles category HTTP requests
type CategoryHandler struct {
	svc    *service.CategoryService
	logger *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler instance
func NewCategoryHandler(svc *service.CategoryService, logger *zap.Logger) *CategoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryHandler{
		svc:    svc,
		logger: logger,
	}
}

// MoveResponse is the body returned by a successful move
type MoveResponse struct {
	Category  *models.Category `json:"category"`
	Rewritten int              `json:"rewritten"`
}

// GetTree returns every tree, nested
func (h *CategoryHandler) GetTree(c *gin.Context) {
	forest, err := h.svc.Forest(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, forest)
}

// GetRoots returns the categories without a parent
func (h *CategoryHandler) GetRoots(c *gin.Context) {
	roots, err := h.svc.Roots(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roots)
}

// CreateCategory creates a new category, optionally below a parent
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.svc.Create(c.Request.Context(), req.Label, req.ParentID)
	if err != nil {
		if req.ParentID != nil && errors.Is(err, repository.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parent category not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// GetCategory returns a single category
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	category, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// RenameCategory changes a category label
func (h *CategoryHandler) RenameCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.svc.Rename(c.Request.Context(), id, req.Label)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// GetAncestors returns the ancestors of a category, root first
func (h *CategoryHandler) GetAncestors(c *gin.Context) {
	h.list(c, h.svc.Ancestors)
}

// GetDescendants returns every category below a category
func (h *CategoryHandler) GetDescendants(c *gin.Context) {
	h.list(c, h.svc.Descendants)
}

// GetChildren returns the direct children of a category
func (h *CategoryHandler) GetChildren(c *gin.Context) {
	h.list(c, h.svc.Children)
}

// GetSiblings returns the other children of a category's parent
func (h *CategoryHandler) GetSiblings(c *gin.Context) {
	h.list(c, h.svc.Siblings)
}

// GetPath returns the chain from the root down to the category's parent
func (h *CategoryHandler) GetPath(c *gin.Context) {
	h.list(c, h.svc.PathFromRoot)
}

// GetParent returns the parent of a category; parent is null for a root
func (h *CategoryHandler) GetParent(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	parent, found, err := h.svc.Parent(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"parent": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"parent": parent})
}

// GetSubtree returns a category with its descendants nested below it
func (h *CategoryHandler) GetSubtree(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	subtree, err := h.svc.Subtree(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtree)
}

// MoveCategory reparents a category. A null parentId makes it a root.
func (h *CategoryHandler) MoveCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}

	var req models.MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, result, err := h.svc.Move(c.Request.Context(), id, req.ParentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MoveResponse{Category: category, Rewritten: result.Rewritten})
}

// DetachCategory makes a category a childless root
func (h *CategoryHandler) DetachCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	category, err := h.svc.Detach(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category. Its children move to its parent.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) list(c *gin.Context, fetch func(ctx context.Context, id int64) ([]*models.Category, error)) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	categories, err := fetch(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// categoryID parses the :id path parameter, answering 400 when it is invalid
func categoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID.Error()})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to status codes
func (h *CategoryHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrCycle):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidArgument), errors.Is(err, repository.ErrNotPersisted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
