// Package handler provides the HTTP handlers for the chat service.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/model"
)

// DocChatHandler handles chat, retrieval, and index HTTP requests.
type DocChatHandler struct {
	service *biz.Service
}

// NewDocChatHandler creates a DocChatHandler.
func NewDocChatHandler(service *biz.Service) *DocChatHandler {
	return &DocChatHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Chat answers a question grounded on the indexed corpus.
func (h *DocChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result, err := h.service.Chat(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "The request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Retrieve returns the passages most relevant to a question without
// calling the LLM.
func (h *DocChatHandler) Retrieve(c *gin.Context) {
	var req model.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result, err := h.service.Retrieve(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "The request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Reload rebuilds the index from the corpus directory.
func (h *DocChatHandler) Reload(c *gin.Context) {
	result, err := h.service.Reload(c.Request.Context())
	if err != nil {
		if errors.Is(err, biz.ErrRebuildInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Index rebuilt successfully", Data: result})
}

// Documents lists the documents in the current index.
func (h *DocChatHandler) Documents(c *gin.Context) {
	docs := h.service.Documents(c.Request.Context())
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: docs})
}

// Stats returns index contents and request counters.
func (h *DocChatHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}
