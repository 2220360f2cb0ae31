// File: internal/user/handler.go
package user

import (
	"errors"
	"net/http"

	"user_account_backend/internal/common"
	"user_account_backend/internal/config"
	"user_account_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

const profilePictureField = "profile_picture"

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	cfg     *config.Config
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		logger:  logger.Named("user.handler"),
	}
}

// RegisterRoutes sets up the /user routes. authMW guards every route except
// signup and signin.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/user")
	{
		userGroup.POST("/signup/", h.signup)
		userGroup.POST("/signin/", h.signin)

		userGroup.GET("/get/", authMW, h.getUser)
		userGroup.GET("/get-profile-picture/", authMW, h.getProfilePicture)
		userGroup.PUT("/", authMW, h.updateUser)
		userGroup.DELETE("/", authMW, h.deleteUser)
	}
}

func (h *Handler) signup(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes())

	var req SignupRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		h.logger.Warn("Signup: invalid request body", zap.Error(err))
		common.RespondWithBindingError(c, err)
		return
	}

	var picture *Upload
	fh, err := c.FormFile(profilePictureField)
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded file", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}
		defer f.Close()
		picture = &Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}
	case errors.Is(err, http.ErrMissingFile):
	default:
		common.RespondWithBindingError(c, err)
		return
	}

	if err := h.service.Signup(c.Request.Context(), req, picture); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "User successfully registered!")
}

func (h *Handler) signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Signin: invalid request body", zap.Error(err))
		common.RespondWithBindingError(c, err)
		return
	}

	res, err := h.service.Signin(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondToken(c, res.SessionToken, res.ExternalID.String())
}

func (h *Handler) getUser(c *gin.Context) {
	usr, err := h.service.GetUser(c.Request.Context(), middleware.GetExternalIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User successfully retrieved!", usr)
}

func (h *Handler) getProfilePicture(c *gin.Context) {
	data, err := h.service.GetProfilePicture(c.Request.Context(), middleware.GetExternalIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *Handler) updateUser(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update: invalid request body", zap.Error(err))
		common.RespondWithBindingError(c, err)
		return
	}

	usr, err := h.service.UpdateUser(c.Request.Context(), middleware.GetExternalIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User successfully updated!", usr)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), middleware.GetExternalIDFromContext(c)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondMessage(c, http.StatusOK, "User successfully deleted!")
}
