package storage

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrassist_back/authorization"
	"hrassist_back/erp"
)

// Module serves employee document endpoints backed by object storage.
type Module struct {
	db     *gorm.DB
	docs   *DocumentStorage
	logger *zap.Logger
}

// RegisterRoutes mounts the document API under /hr. The docs argument may be
// nil; upload endpoints then answer 503 while listings still work.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, db *gorm.DB, docs *DocumentStorage, logger *zap.Logger) (*Module, error) {
	if router == nil {
		return nil, errors.New("storage: router is required")
	}
	if db == nil {
		return nil, errors.New("storage: database handle is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Module{db: db, docs: docs, logger: logger.Named("documents")}

	group := router.Group("/hr")
	if guard != nil {
		group.Use(guard.RequireAuthenticated())
	}

	group.POST("/employees/:id/documents", m.handleUpload)
	group.GET("/employees/:id/documents", m.handleList)
	group.DELETE("/documents/:id", m.handleRemove)
	group.POST("/documents/import-archive", m.handleImportArchive)

	return m, nil
}

func (m *Module) employeeFromParam(c *gin.Context) (*erp.Employee, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid employee id"})
		return nil, false
	}

	var employee erp.Employee
	if err := m.db.WithContext(c.Request.Context()).First(&employee, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "employee not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load employee"})
		}
		return nil, false
	}
	return &employee, true
}

func (m *Module) requireStorage(c *gin.Context) bool {
	if m.docs.Configured() {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "document storage not configured"})
	return false
}

func (m *Module) handleUpload(c *gin.Context) {
	if !m.requireStorage(c) {
		return
	}
	employee, ok := m.employeeFromParam(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "document file is required"})
		return
	}

	ctx := c.Request.Context()
	object, err := m.docs.Upload(ctx, employee.ID, fileHeader)
	if err != nil {
		m.logger.Warn("document upload failed",
			zap.Uint("employee", employee.ID),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	record := erp.EmployeeDocument{
		EmployeeID:  employee.ID,
		Name:        object.Name,
		ObjectKey:   object.Key,
		ContentType: object.ContentType,
		Size:        object.Size,
	}
	if err := m.db.WithContext(ctx).Create(&record).Error; err != nil {
		_ = m.docs.Remove(ctx, object.Key)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save document record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "document": m.describe(c, record)})
}

func (m *Module) handleList(c *gin.Context) {
	employee, ok := m.employeeFromParam(c)
	if !ok {
		return
	}

	var records []erp.EmployeeDocument
	err := m.db.WithContext(c.Request.Context()).
		Where("employee_id = ?", employee.ID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load documents"})
		return
	}

	payload := make([]gin.H, 0, len(records))
	for _, record := range records {
		payload = append(payload, m.describe(c, record))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "documents": payload})
}

func (m *Module) handleRemove(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid document id"})
		return
	}

	ctx := c.Request.Context()
	var record erp.EmployeeDocument
	if err := m.db.WithContext(ctx).First(&record, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "document not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load document"})
		}
		return
	}

	if err := m.db.WithContext(ctx).Delete(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete document"})
		return
	}
	if err := m.docs.Remove(ctx, record.ObjectKey); err != nil {
		m.logger.Warn("object removal failed",
			zap.String("key", record.ObjectKey),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (m *Module) handleImportArchive(c *gin.Context) {
	if !m.requireStorage(c) {
		return
	}

	employeeIDValue := c.PostForm("employee_id")
	employeeID, err := strconv.ParseUint(employeeIDValue, 10, 64)
	if err != nil || employeeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "employee_id is required"})
		return
	}

	ctx := c.Request.Context()
	var employee erp.Employee
	if err := m.db.WithContext(ctx).First(&employee, uint(employeeID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "employee not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load employee"})
		}
		return
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "archive file is required"})
		return
	}

	entries, err := ExtractDocuments(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	imported := make([]gin.H, 0, len(entries))
	var failed []string
	for _, entry := range entries {
		object, err := m.docs.UploadBytes(ctx, employee.ID, entry.Name, entry.Data, entry.ContentType)
		if err != nil {
			m.logger.Warn("archive entry upload failed",
				zap.String("entry", entry.Name),
				zap.Error(err))
			failed = append(failed, entry.Name)
			continue
		}

		record := erp.EmployeeDocument{
			EmployeeID:  employee.ID,
			Name:        object.Name,
			ObjectKey:   object.Key,
			ContentType: object.ContentType,
			Size:        object.Size,
		}
		if err := m.db.WithContext(ctx).Create(&record).Error; err != nil {
			_ = m.docs.Remove(ctx, object.Key)
			failed = append(failed, entry.Name)
			continue
		}
		imported = append(imported, m.describe(c, record))
	}

	response := gin.H{
		"success":   true,
		"imported":  len(imported),
		"documents": imported,
	}
	if len(failed) > 0 {
		response["failed"] = failed
	}
	c.JSON(http.StatusOK, response)
}

func (m *Module) describe(c *gin.Context, record erp.EmployeeDocument) gin.H {
	payload := gin.H{
		"id":           record.ID,
		"employee_id":  record.EmployeeID,
		"name":         record.Name,
		"content_type": record.ContentType,
		"size":         record.Size,
		"created_at":   record.CreatedAt,
	}
	if m.docs.Configured() {
		if url, err := m.docs.PresignedURL(c.Request.Context(), record.ObjectKey, 15*time.Minute); err == nil {
			payload["url"] = url
		}
	}
	return payload
}
