package httpserver

import "github.com/labstack/echo/v4"

// envelope is the uniform API response body.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, envelope{Status: true, Message: message, Data: data})
}

func respondError(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Status: false, Message: message})
}
