package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers/common"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
	"github.com/StuffMaster78/acad-system-backend/internal/repository"
	"github.com/StuffMaster78/acad-system-backend/internal/storage"
)

// Разрешённые типы вложений заказа.
var allowedFileMimeTypes = map[string]bool{
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/zip": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// Разрешённые расширения вложений.
var allowedFileExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".zip":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// FileHandler управляет вложениями заказов.
type FileHandler struct {
	orders  *repository.OrderRepository
	storage *storage.FileStorage
	users   UserGetter
}

// NewFileHandler создаёт хэндлер.
func NewFileHandler(orders *repository.OrderRepository, fs *storage.FileStorage, users UserGetter) *FileHandler {
	return &FileHandler{orders: orders, storage: fs, users: users}
}

// Upload обрабатывает POST /orders/:id/files.
func (h *FileHandler) Upload(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	actor, err := currentActor(c, h.users)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Загружать файлы могут стороны заказа и персонал.
	isParty := actor.ID == order.ClientID ||
		(order.AssignedWriterID != nil && actor.ID == *order.AssignedWriterID)
	if !isParty && !actor.IsStaff() {
		common.RespondForbidden(c, "вы не являетесь участником заказа")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedFileExtensions[ext] {
		common.RespondBadRequest(c, "неподдерживаемый формат файла")
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	// Проверяем магические байты: расширению не доверяем.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла")
		return
	}
	if !allowedFileMimeTypes[kind.MIME.Value] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s)", kind.MIME.Value))
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return
		}
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), orderID, file.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	orderFile := &models.OrderFile{
		OrderID:    orderID,
		UploaderID: actor.ID,
		FilePath:   filepath.ToSlash(relativePath),
		FileType:   kind.MIME.Value,
		FileSize:   size,
	}
	if err := h.orders.CreateFile(c.Request.Context(), orderFile); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, orderFile)
}

// List обрабатывает GET /orders/:id/files.
func (h *FileHandler) List(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	files, err := h.orders.ListFiles(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, files)
}
