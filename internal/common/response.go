package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MessageResponse is the message-only envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse is the message plus single-record envelope.
type DataResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// TokenData is the payload of a TokenResponse.
type TokenData struct {
	UserID string `json:"user_id"`
}

// TokenResponse is returned on successful signin.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	Data        TokenData `json:"data"`
}

// RespondWithError sends a JSON error response.
func RespondWithError(c *gin.Context, err error) {
	apiErr, ok := IsAPIError(err)
	if !ok {
		if l, exists := c.Get(LoggerKey); exists {
			if logger, ok := l.(*zap.Logger); ok {
				logger.Error("Unhandled internal error being wrapped", zap.Error(err))
			}
		}
		apiErr = ErrInternalServer
		if gin.Mode() == gin.DebugMode {
			apiErr = ErrInternalServer.WithDetail(err.Error())
		}
	}

	for k, v := range apiErr.Headers {
		c.Header(k, v)
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// RespondWithBindingError renders request binding failures: validator errors
// become a 422 with per-field messages, anything else a 400.
func RespondWithBindingError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		RespondWithError(c, NewValidationAPIError(FormatValidationErrors(ve)))
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		RespondWithError(c, ErrPayloadTooLarge)
		return
	}
	RespondWithError(c, ErrBadRequest.WithDetail(err.Error()))
}

// RespondMessage sends the message-only envelope.
func RespondMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, MessageResponse{Message: message})
}

// RespondOK sends a 200 OK response with a data envelope.
func RespondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, DataResponse{Message: message, Data: data})
}

// RespondCreated sends a 201 Created message envelope.
func RespondCreated(c *gin.Context, message string) {
	RespondMessage(c, http.StatusCreated, message)
}

// RespondToken sends the signin envelope.
func RespondToken(c *gin.Context, accessToken, userID string) {
	c.JSON(http.StatusOK, TokenResponse{AccessToken: accessToken, Data: TokenData{UserID: userID}})
}
