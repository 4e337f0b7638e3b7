package api

import (
	"github.com/labstack/echo/v4"

	"github.com/wlanlink/wlanlink/wifi"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

type rootResponse struct {
	ApiRoutes []*echo.Route
}

type errorResponse struct {
	Error string `json:"error"`
}

type extendedContext struct {
	echo.Context
	apiRoutes []*echo.Route
	client    *wifi.Client
	procMount string
}
