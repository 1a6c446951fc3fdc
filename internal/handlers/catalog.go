package handlers

import (
	"net/http"

	"qualiflow/internal/database"
	"qualiflow/internal/services"

	"github.com/gin-gonic/gin"
)

type branchRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Address     string `json:"address" binding:"max=255"`
}

func (h *Handler) CreateBranch(c *gin.Context) {
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	branch, err := h.catalog.CreateBranch(c.Request.Context(), services.BranchInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "branch", branch.ID, "create", "created branch "+branch.Code)
	}
	c.JSON(http.StatusCreated, branch)
}

func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.catalog.ListBranches(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

func (h *Handler) GetBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	branch, err := h.catalog.GetBranch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func (h *Handler) UpdateBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	branch, err := h.catalog.UpdateBranch(c.Request.Context(), id, services.BranchInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "branch", branch.ID, "update", "updated branch "+branch.Code)
	}
	c.JSON(http.StatusOK, branch)
}

func (h *Handler) DeleteBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteBranch(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "branch", id, "delete", "deleted branch")
	}
	c.Status(http.StatusNoContent)
}

type sectorRequest struct {
	BranchID    uint   `json:"branch_id" binding:"required"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

func (h *Handler) CreateSector(c *gin.Context) {
	var req sectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	sector, err := h.catalog.CreateSector(c.Request.Context(), services.SectorInput{
		BranchID:    req.BranchID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "sector", sector.ID, "create", "created sector "+sector.Name)
	}
	c.JSON(http.StatusCreated, sector)
}

func (h *Handler) ListSectors(c *gin.Context) {
	branchID, ok := queryUint(c, "branch_id")
	if !ok {
		return
	}
	sectors, err := h.catalog.ListSectors(c.Request.Context(), branchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sectors)
}

func (h *Handler) GetSector(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sector, err := h.catalog.GetSector(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sector)
}

func (h *Handler) UpdateSector(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req sectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	sector, err := h.catalog.UpdateSector(c.Request.Context(), id, services.SectorInput{
		BranchID:    req.BranchID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sector)
}

func (h *Handler) DeleteSector(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSector(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
