package serviceutils

import (
	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheetlens/internal/logger"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ResponseError logs err and writes the failure envelope.
func ResponseError(c echo.Context, status int, message string, err error) error {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		if status >= 500 {
			logger.ErrorLog(c.Request().Context(), err, "%s", message)
		} else {
			logger.DebugLog(c.Request().Context(), "%s: %v", message, err)
		}
	}
	return c.JSON(status, resp)
}
