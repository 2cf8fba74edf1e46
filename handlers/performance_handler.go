package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type PerformanceHandler struct {
	performanceService *services.PerformanceService
}

func NewPerformanceHandler(performanceService *services.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{performanceService: performanceService}
}

func (h *PerformanceHandler) GetAll(c *gin.Context) {
	perfs, err := h.performanceService.GetAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perfs)
}

func (h *PerformanceHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	perf, err := h.performanceService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

func (h *PerformanceHandler) Create(c *gin.Context) {
	var req services.CreatePerformanceRequest
	if !bindJSON(c, &req) {
		return
	}
	perf, err := h.performanceService.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, perf)
}

func (h *PerformanceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdatePerformanceRequest
	if !bindJSON(c, &req) {
		return
	}
	perf, err := h.performanceService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

func (h *PerformanceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.performanceService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Performance deleted successfully"})
}
