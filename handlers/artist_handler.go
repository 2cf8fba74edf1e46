package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type ArtistHandler struct {
	artistService *services.ArtistService
}

func NewArtistHandler(artistService *services.ArtistService) *ArtistHandler {
	return &ArtistHandler{artistService: artistService}
}

func (h *ArtistHandler) GetAll(c *gin.Context) {
	artists, err := h.artistService.GetAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artists)
}

func (h *ArtistHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	artist, err := h.artistService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artist)
}

func (h *ArtistHandler) Create(c *gin.Context) {
	var req services.CreateArtistRequest
	if !bindJSON(c, &req) {
		return
	}
	artist, err := h.artistService.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artist)
}

func (h *ArtistHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateArtistRequest
	if !bindJSON(c, &req) {
		return
	}
	artist, err := h.artistService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artist)
}

func (h *ArtistHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.artistService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Artist deleted successfully"})
}
