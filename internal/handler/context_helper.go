package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/md-notes-api/internal/middleware"
	"github.com/noah-isme/md-notes-api/internal/models"
)

func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.PrincipalFrom(c)
}
