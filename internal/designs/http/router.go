package http

import "github.com/gin-gonic/gin"

// Register mounts the generation and design routes on rg. The caller is
// expected to have attached the auth middleware already.
func Register(rg *gin.RouterGroup, h *Handler) {
	rg.POST("/generate", h.generate)

	designs := rg.Group("/designs")
	designs.POST("", h.save)
	designs.GET("", h.list)
	designs.DELETE("/:id", h.delete)
}
