package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"

	"gorm.io/gorm"

	"platecost/internal/config"
	"platecost/internal/server"
)

// fakeServer blocks in Start until Stop is called, or returns startErr immediately.
type fakeServer struct {
	startErr error
	stopErr  error

	started chan struct{}
	stopped chan struct{}
}

func newFakeServer(startErr, stopErr error) *fakeServer {
	return &fakeServer{
		startErr: startErr,
		stopErr:  stopErr,
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *fakeServer) Start() error {
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *fakeServer) Stop() error {
	close(s.stopped)
	return s.stopErr
}

func (s *fakeServer) wasStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// harness swaps every process dependency of run for the duration of a test.
type harness struct {
	cfg      config.Config
	server   *fakeServer
	signals  chan os.Signal
	usedMock bool
	closed   bool
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()

	saved := struct {
		load      func() (config.Config, error)
		logging   func(string, string) error
		mock      func(context.Context) (*gorm.DB, error)
		configure func(config.DatabaseConfig) (*gorm.DB, error)
		close     func(*gorm.DB) error
		server    func(server.Config) (serverLifecycle, error)
		signals   func() (<-chan os.Signal, func())
	}{loadConfigFunc, setupLoggingFunc, newMockDatabaseFunc, configureDatabase, closeDatabaseFunc, newServerFunc, subscribeShutdownSig}
	t.Cleanup(func() {
		loadConfigFunc = saved.load
		setupLoggingFunc = saved.logging
		newMockDatabaseFunc = saved.mock
		configureDatabase = saved.configure
		closeDatabaseFunc = saved.close
		newServerFunc = saved.server
		subscribeShutdownSig = saved.signals
	})

	h := &harness{
		cfg:     cfg,
		server:  newFakeServer(nil, nil),
		signals: make(chan os.Signal, 1),
	}

	loadConfigFunc = func() (config.Config, error) { return h.cfg, nil }
	setupLoggingFunc = func(string, string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		h.usedMock = true
		return &gorm.DB{}, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		t.Fatal("configured database should not be opened")
		return nil, nil
	}
	closeDatabaseFunc = func(*gorm.DB) error {
		h.closed = true
		return nil
	}
	newServerFunc = func(server.Config) (serverLifecycle, error) { return h.server, nil }
	subscribeShutdownSig = func() (<-chan os.Signal, func()) { return h.signals, func() {} }

	return h
}

func mockConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Addr: ":3001"},
		Database: config.DatabaseConfig{UseMock: true},
		Logging:  config.LoggingConfig{Level: "debug", Format: "text"},
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	h := newHarness(t, mockConfig())

	go func() {
		<-h.server.started
		h.signals <- syscall.SIGTERM
	}()

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !h.usedMock {
		t.Fatal("expected the mock database to be used")
	}
	if !h.server.wasStopped() {
		t.Fatal("expected the server to be stopped")
	}
	if !h.closed {
		t.Fatal("expected the database to be closed at shutdown")
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	h := newHarness(t, mockConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.server.started
		cancel()
	}()

	if code := run(ctx); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !h.server.wasStopped() || !h.closed {
		t.Fatalf("expected stop and close, stopped=%v closed=%v", h.server.wasStopped(), h.closed)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness)
	}{
		{
			name: "config",
			setup: func(t *testing.T, h *harness) {
				loadConfigFunc = func() (config.Config, error) { return config.Config{}, errors.New("bad env") }
			},
		},
		{
			name: "logging",
			setup: func(t *testing.T, h *harness) {
				setupLoggingFunc = func(string, string) error { return errors.New("unknown log level") }
			},
		},
		{
			name: "database",
			setup: func(t *testing.T, h *harness) {
				h.cfg.Database = config.DatabaseConfig{URL: "postgres://kitchen"}
				configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
					return nil, errors.New("connection refused")
				}
			},
		},
		{
			name: "server construction",
			setup: func(t *testing.T, h *harness) {
				newServerFunc = func(server.Config) (serverLifecycle, error) { return nil, errors.New("bad addr") }
			},
		},
		{
			name: "listener",
			setup: func(t *testing.T, h *harness) {
				h.server = newFakeServer(errors.New("address in use"), nil)
			},
		},
		{
			name: "graceful shutdown",
			setup: func(t *testing.T, h *harness) {
				h.server = newFakeServer(nil, errors.New("deadline exceeded"))
				go func() {
					<-h.server.started
					h.signals <- syscall.SIGINT
				}()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mockConfig())
			tt.setup(t, h)

			if code := run(context.Background()); code != 1 {
				t.Fatalf("expected exit code 1, got %d", code)
			}
		})
	}
}

func TestRunPassesServerSettings(t *testing.T) {
	h := newHarness(t, mockConfig())
	h.cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}

	var got server.Config
	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		got = cfg
		return h.server, nil
	}
	go func() {
		<-h.server.started
		h.signals <- syscall.SIGTERM
	}()

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if got.Addr != ":3001" || got.Database == nil {
		t.Fatalf("unexpected server config: %+v", got)
	}
	if len(got.AllowedOrigins) != 1 || got.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("expected allowed origins to be passed through, got %v", got.AllowedOrigins)
	}
}

func TestOpenDatabaseChoosesBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DatabaseConfig
		wantMock bool
	}{
		{"mock requested", config.DatabaseConfig{UseMock: true, URL: "postgres://kitchen"}, true},
		{"blank url", config.DatabaseConfig{URL: "  "}, true},
		{"configured url", config.DatabaseConfig{Driver: config.DriverSQLite, URL: "kitchen.db"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mockConfig())
			configured := false
			configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
				configured = true
				return &gorm.DB{}, nil
			}

			if _, err := openDatabase(context.Background(), tt.cfg); err != nil {
				t.Fatalf("openDatabase() error = %v", err)
			}
			if h.usedMock != tt.wantMock || configured == tt.wantMock {
				t.Fatalf("mock=%v configured=%v, want mock=%v", h.usedMock, configured, tt.wantMock)
			}
		})
	}
}
