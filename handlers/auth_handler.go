package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/response"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

const providerSecretHeader = "X-Provider-Secret"

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ProviderSignIn is called server-to-server by an identity provider bridge.
func (h *AuthHandler) ProviderSignIn(c *gin.Context) {
	var req services.ProviderSignInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.ProviderSignIn(c.Request.Context(), c.GetHeader(providerSecretHeader), &req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"is_admin": h.authService.IsAdmin(user.Email),
	})
}
