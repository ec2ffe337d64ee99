// Package server provides the generic HTTP (gin) + gRPC server scaffolding
// shared by conductord's apiServer, following the K8s-apiserver-style
// Config → Complete() → New() construction used throughout echoryn.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Config is the generic HTTP server configuration.
type Config struct {
	BindAddress string
	BindPort    int
	Mode        string // gin.DebugMode | gin.ReleaseMode
}

// NewConfig returns a Config with conservative defaults.
func NewConfig() *Config {
	return &Config{
		BindAddress: "0.0.0.0",
		BindPort:    8080,
		Mode:        gin.ReleaseMode,
	}
}

// CompletedConfig is the validated Config, ready for New().
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults not already set.
func (c *Config) Complete() CompletedConfig {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0"
	}
	if c.BindPort == 0 {
		c.BindPort = 8080
	}
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	return CompletedConfig{c}
}

// GenericAPIServer wraps a gin.Engine with an http.Server for graceful
// start/stop.
type GenericAPIServer struct {
	Engine *gin.Engine
	srv    *http.Server
	addr   string
}

// New constructs a GenericAPIServer from the completed config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	addr := c.BindAddress
	if c.BindPort != 0 {
		addr = addrWithPort(c.BindAddress, c.BindPort)
	}

	return &GenericAPIServer{
		Engine: engine,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func addrWithPort(host string, port int) string {
	if host == "" {
		host = "0.0.0.0"
	}
	return host + ":" + itoa(port)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Run starts serving and blocks until the server stops.
func (s *GenericAPIServer) Run() error {
	s.srv.Addr = s.addr
	s.srv.Handler = s.Engine
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts the HTTP server down.
func (s *GenericAPIServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
