package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taxrecon/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	h := http.NewServeMux()
	srv := newHTTPServer(&config.ServerConfig{
		Port:         ":9090",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, h)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
	assert.Same(t, h, srv.Handler)
}

func TestShutdownGrace(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownGrace(&config.ServerConfig{}))
	assert.Equal(t, 5*time.Second, shutdownGrace(&config.ServerConfig{ShutdownGrace: 5 * time.Second}))
}
