package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"qualiflow/internal/database"
	"qualiflow/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateDocument takes a multipart form: metadata fields plus the initial
// file, which becomes version 1.
func (h *Handler) CreateDocument(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		badRequest(c, "title is required")
		return
	}
	branchID, err := strconv.Atoi(c.PostForm("branch_id"))
	if err != nil || branchID <= 0 {
		badRequest(c, "invalid branch_id")
		return
	}

	var sectorID *uint
	if raw := c.PostForm("sector_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "invalid sector_id")
			return
		}
		u := uint(v)
		sectorID = &u
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	ref, err := h.store.Save(fileHeader.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	doc, err := h.documents.CreateDocument(c.Request.Context(), services.CreateDocumentInput{
		Title:       title,
		Description: c.PostForm("description"),
		BranchID:    uint(branchID),
		SectorID:    sectorID,
		CreatedByID: uid,
		FileRef:     ref,
		Notes:       c.PostForm("notes"),
	})
	if err != nil {
		_ = h.store.Remove(ref)
		h.respondError(c, err)
		return
	}

	database.CreateAuditLog(h.db, uid, "document", doc.ID, "create", "created document "+doc.Title)
	c.JSON(http.StatusCreated, doc)
}

// AppendDocumentVersion uploads the next version of an existing document.
func (h *Handler) AppendDocumentVersion(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	ref, err := h.store.Save(fileHeader.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	version, err := h.documents.AppendVersion(c.Request.Context(), id, ref, c.PostForm("notes"), uid)
	if err != nil {
		_ = h.store.Remove(ref)
		h.respondError(c, err)
		return
	}

	database.CreateAuditLog(h.db, uid, "document", id, "append_version",
		"uploaded version "+strconv.Itoa(int(version.Version)))
	c.JSON(http.StatusCreated, version)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	branchID, ok := queryUint(c, "branch_id")
	if !ok {
		return
	}
	docs, err := h.documents.ListDocuments(c.Request.Context(), branchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DownloadDocumentVersion streams the stored blob of one version.
func (h *Handler) DownloadDocumentVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	versionNum, err := strconv.Atoi(c.Param("version"))
	if err != nil || versionNum <= 0 {
		badRequest(c, "invalid version")
		return
	}

	doc, err := h.documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for _, v := range doc.Versions {
		if v.Version == uint(versionNum) {
			blob, err := h.store.Open(v.FileRef)
			if err != nil {
				h.respondError(c, err)
				return
			}
			defer blob.Close()

			c.Header("Content-Disposition", "attachment; filename=\""+v.FileRef+"\"")
			c.DataFromReader(http.StatusOK, -1, "application/octet-stream", blob, nil)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
}

type documentUpdateRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	SectorID    *uint  `json:"sector_id"`
}

func (h *Handler) UpdateDocument(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req documentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}

	doc, err := h.documents.UpdateDocument(c.Request.Context(), id, services.UpdateDocumentInput{
		Title:       req.Title,
		Description: req.Description,
		SectorID:    req.SectorID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "document", doc.ID, "update", "updated document "+doc.Title)
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.documents.DeleteDocument(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	if uid, ok := currentUserID(c); ok {
		database.CreateAuditLog(h.db, uid, "document", id, "delete", "deleted document")
	}
	c.Status(http.StatusNoContent)
}
