package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type ComposerHandler struct {
	composerService *services.ComposerService
	pieceService    *services.PieceService
}

func NewComposerHandler(composerService *services.ComposerService, pieceService *services.PieceService) *ComposerHandler {
	return &ComposerHandler{composerService: composerService, pieceService: pieceService}
}

func (h *ComposerHandler) GetAll(c *gin.Context) {
	composers, err := h.composerService.GetAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composers)
}

func (h *ComposerHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	composer, err := h.composerService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composer)
}

func (h *ComposerHandler) GetPieces(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pieces, err := h.pieceService.GetByComposer(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pieces)
}

func (h *ComposerHandler) Create(c *gin.Context) {
	var req services.CreateComposerRequest
	if !bindJSON(c, &req) {
		return
	}
	composer, err := h.composerService.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, composer)
}

func (h *ComposerHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateComposerRequest
	if !bindJSON(c, &req) {
		return
	}
	composer, err := h.composerService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, composer)
}

func (h *ComposerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.composerService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Composer deleted successfully"})
}
