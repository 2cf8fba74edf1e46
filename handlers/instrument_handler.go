package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type InstrumentHandler struct {
	instrumentService *services.InstrumentService
}

func NewInstrumentHandler(instrumentService *services.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{instrumentService: instrumentService}
}

func (h *InstrumentHandler) GetAll(c *gin.Context) {
	instruments, err := h.instrumentService.GetAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instruments)
}

func (h *InstrumentHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	instrument, err := h.instrumentService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instrument)
}

func (h *InstrumentHandler) Create(c *gin.Context) {
	var req services.CreateInstrumentRequest
	if !bindJSON(c, &req) {
		return
	}
	instrument, err := h.instrumentService.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, instrument)
}
