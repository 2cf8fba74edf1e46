package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type PieceHandler struct {
	pieceService       *services.PieceService
	performanceService *services.PerformanceService
}

func NewPieceHandler(pieceService *services.PieceService, performanceService *services.PerformanceService) *PieceHandler {
	return &PieceHandler{pieceService: pieceService, performanceService: performanceService}
}

func (h *PieceHandler) GetAll(c *gin.Context) {
	pieces, err := h.pieceService.GetAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pieces)
}

func (h *PieceHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	piece, err := h.pieceService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, piece)
}

func (h *PieceHandler) GetPerformances(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	perfs, err := h.performanceService.GetByPiece(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perfs)
}

func (h *PieceHandler) Create(c *gin.Context) {
	var req services.CreatePieceRequest
	if !bindJSON(c, &req) {
		return
	}
	piece, err := h.pieceService.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, piece)
}

func (h *PieceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdatePieceRequest
	if !bindJSON(c, &req) {
		return
	}
	piece, err := h.pieceService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, piece)
}

func (h *PieceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.pieceService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Piece deleted successfully"})
}
