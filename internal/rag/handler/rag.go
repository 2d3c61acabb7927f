// Package handler provides HTTP handlers for RAG service.
package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	infralog "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

// RAGHandler handles RAG HTTP requests.
type RAGHandler struct {
	service biz.Service
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(service biz.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

// StatusResponse 根路径存活响应。
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AddRequest represents an add-knowledge request.
type AddRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

// AddResponse 写入成功响应。
type AddResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// QueryRequest represents a query request.
type QueryRequest struct {
	Q string `json:"q" binding:"required,notblank"`
}

// QueryResponse 问答成功响应。
type QueryResponse struct {
	Answer string `json:"answer"`
}

// Root reports that the API is running.
func (h *RAGHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:  "ok",
		Message: "Sentinel RAG API is running",
	})
}

// Add stores a piece of knowledge and returns its generated id.
func (h *RAGHandler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	result, err := h.service.AddKnowledge(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, "add", err)
		return
	}

	c.JSON(http.StatusCreated, AddResponse{
		Status:  "success",
		Message: "Content added to knowledge base",
		ID:      result.ID,
	})
}

// Query answers a question from the knowledge base.
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}

	result, err := h.service.Query(c.Request.Context(), req.Q)
	if err != nil {
		h.fail(c, "query", err)
		return
	}

	c.JSON(http.StatusOK, QueryResponse{Answer: result.Answer})
}

// Stats returns knowledge base statistics.
func (h *RAGHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	response.OK(c, stats)
}

// fail 记录服务端错误后写入错误响应, 客户端错误不打印日志。
func (h *RAGHandler) fail(c *gin.Context, op string, err error) {
	e := errors.FromError(err)
	if e.HTTPStatus() >= http.StatusInternalServerError {
		infralog.LogError(c.Request.Context(), "RAG request failed", err,
			"op", op,
			"code", e.Code,
		)
	}
	response.Fail(c, err)
}

// bindError 将请求绑定错误转换为 errno。
func bindError(err error) error {
	var verrs *validator.ValidationErrors
	if stderrors.As(err, &verrs) && verrs.HasErrors() {
		return errors.ErrRAGValidation.WithMessage(verrs.Error())
	}
	return errors.ErrRAGInvalidRequest.WithCause(err)
}
