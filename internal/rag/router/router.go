// Package router registers the RAG service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

// Register registers the RAG routes on engine.
// 同时将 gin 的校验器替换为支持 notblank 等自定义规则的全局校验器。
func Register(engine *gin.Engine, h *handler.RAGHandler) {
	binding.Validator = validator.Global()

	engine.GET("/", h.Root)
	engine.POST("/add", h.Add)
	engine.POST("/query", h.Query)
	engine.GET("/stats", h.Stats)
}
