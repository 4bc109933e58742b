package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServer_ListenServeShutdown(t *testing.T) {
	srv := NewServer(ServerConfig{Port: 0, Logger: testLogger(), StartTime: time.Now()})

	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if !strings.HasPrefix(srv.Addr(), "127.0.0.1:") || strings.HasSuffix(srv.Addr(), ":0") {
		t.Fatalf("Addr() = %q, want the bound loopback port", srv.Addr())
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_ListenPortInUse(t *testing.T) {
	first := NewServer(ServerConfig{Port: 0, Logger: testLogger()})
	ln, err := first.Listen()
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	port := ln.Addr().String()[strings.LastIndex(ln.Addr().String(), ":")+1:]
	second := NewServer(ServerConfig{Logger: testLogger()})
	second.httpServer.Addr = "127.0.0.1:" + port
	if _, err := second.Listen(); err == nil {
		t.Fatal("Listen() on a bound port should fail")
	}
}
