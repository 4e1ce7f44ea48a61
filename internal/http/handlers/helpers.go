package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers/common"
	"github.com/StuffMaster78/acad-system-backend/internal/models"
)

// UserGetter загружает пользователя по идентификатору. Хэндлерам нужен
// полный пользователь, потому что сервисы принимают актора, а не userID.
type UserGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// currentActor резолвит актора запроса из контекста gin.
func currentActor(c *gin.Context, users UserGetter) (*models.User, error) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		return nil, err
	}
	return users.GetUser(c.Request.Context(), userID)
}
