// Package api exposes the state of the nl80211 proxy over a small REST
// API together with the Prometheus metrics endpoint.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-yaml"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wlanlink/wlanlink/wifi"
)

var DefaultConfig = Config{
	BindAddress: "127.0.0.1",
	BindPort:    7777,
	ProcMount:   "/proc",
}

type Config struct {
	BindAddress string `yaml:"bindAddress"`
	BindPort    int    `yaml:"bindPort"`

	// ProcMount is where procfs lives, there's no reason to override it
	// outside of the tests.
	ProcMount string `yaml:"procMount"`
}

func (c *Config) UnmarshalYAML(data []byte) error {
	// Note how we avoid recursing into this same function by declaring
	// an auxiliary type without any methods defined on it.
	type config Config
	aux := config(DefaultConfig)
	if err := yaml.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("couldn't unmarshal the api configuration: %w", err)
	}
	*c = Config(aux)
	return nil
}

// Server answers the REST API backed by a wifi client. The prometheus
// registry it is given backs the /metrics endpoint.
type Server struct {
	server *echo.Echo

	conf     Config
	client   *wifi.Client
	registry *prometheus.Registry
}

func New(conf *Config, client *wifi.Client, registry *prometheus.Registry) *Server {
	if conf == nil {
		return &Server{conf: DefaultConfig, client: client, registry: registry}
	}
	return &Server{conf: *conf, client: client, registry: registry}
}

func (s *Server) String() string {
	return "api"
}

func (s *Server) Init() error {
	slog.Debug("initialising the api server")
	s.server = echo.New()

	// Configure the methods for each path
	s.server.GET("/", handleRoot)
	s.server.GET("/api/v1/family", handleFamily)
	s.server.GET("/api/v1/interfaces", handleInterfaces)
	s.server.GET("/api/v1/quality", handleQuality)
	s.server.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Configure the middleware for extending the context of the
	// different handlers with the handles they need.
	s.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&extendedContext{c, s.server.Routes(), s.client, s.conf.ProcMount})
		}
	})

	// Prevent the banner from showing up in the log
	s.server.HideBanner = true
	s.server.HidePort = true

	return nil
}

func (s *Server) Run(done <-chan struct{}) {
	slog.Debug("running the api server")

	go func() {
		if err := s.server.Start(fmt.Sprintf("%s:%d", s.conf.BindAddress, s.conf.BindPort)); err != http.ErrServerClosed {
			slog.Error("couldn't start the API server", "err", err)
		}
	}()

	// Simply wait until we're done
	<-done
	slog.Debug("cleanly exiting the api server")
}

func (s *Server) Cleanup() error {
	slog.Debug("cleaning up the api server")
	if err := s.server.Shutdown(context.TODO()); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
