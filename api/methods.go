package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wlanlink/wlanlink/wifi"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func handleFamily(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, cc.client.FamilyInfo(), JSON_PRETTY_INDENT)
}

func handleInterfaces(c echo.Context) error {
	cc := c.(*extendedContext)

	ifaces, err := cc.client.Interfaces()
	if err != nil {
		return c.JSONPretty(http.StatusInternalServerError, errorResponse{err.Error()}, JSON_PRETTY_INDENT)
	}

	// The verbosity query parameter picks the struct tag controlling
	// what gets marshalled, just drop it for the full picture.
	verbosity := c.QueryParam("verbosity")
	for i := range ifaces {
		ifaces[i].Verbosity = verbosity
	}

	return c.JSONPretty(http.StatusOK, ifaces, JSON_PRETTY_INDENT)
}

func handleQuality(c echo.Context) error {
	cc := c.(*extendedContext)

	snapshot, err := wifi.QualitySnapshot(cc.procMount)
	if err != nil {
		return c.JSONPretty(http.StatusInternalServerError, errorResponse{err.Error()}, JSON_PRETTY_INDENT)
	}
	return c.JSONPretty(http.StatusOK, snapshot, JSON_PRETTY_INDENT)
}
