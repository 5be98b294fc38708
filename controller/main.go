package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRoutes(r *gin.Engine, logger *zap.Logger) *SFTPController {
	sftpController := NewSFTPController(logger)
	sftp := r.Group("/sftp")
	{
		sftp.POST("", sftpController.Login)
		sftp.GET("/:id", sftpController.StartFS)
		sftp.GET("/:id/download", sftpController.Download)
		sftp.PUT("/:id/upload", sftpController.Upload)
		sftp.DELETE("/:id", sftpController.Logout)
	}
	return sftpController
}
