// Package api exposes the recorder over HTTP: the session lifecycle
// commands, the artifact download, device enumeration, the WebRTC
// preview handshake, and an SSE event stream. Built on huma v2 with
// Go 1.22+ native routing.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/tisianewembou/NextWavePt3/internal/api/models"
	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/events"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/preview"
	"github.com/tisianewembou/NextWavePt3/internal/session"
	"github.com/tisianewembou/NextWavePt3/internal/updater"
	"github.com/tisianewembou/NextWavePt3/internal/version"
)

// Options wires the server to its collaborators.
type Options struct {
	AuthUsername string
	AuthPassword string

	Controller *session.Controller
	Store      *artifact.Store
	Preview    *preview.Manager
	Updater    *updater.Service
	Bus        *events.Bus

	PrometheusHandler http.Handler
}

// Server is the huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     logging.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("NextWave Recorder API", version.Version)
	config.Info.Description = "Webcam and microphone recording sessions with live WebRTC preview"
	// An empty servers list keeps OpenAPI paths relative to any host.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// API returns the huma API instance, used by tests.
func (s *Server) API() huma.API {
	return s.api
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting recorder API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections;
// SSE streams would otherwise hold shutdown forever.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // no auth
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // no auth
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerSessionRoutes()
	s.registerDeviceRoutes()
	s.registerRecordingRoutes()
	s.registerPreviewRoutes()
	s.registerUpdateRoutes()
	s.registerSSERoutes()
}

// basicAuthMiddleware enforces HTTP basic auth on operations that
// declare a security requirement. SSE clients cannot set headers, so
// a base64 "auth" query parameter is accepted as a fallback.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	unauthorized := func(ctx huma.Context, message string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="NextWave Recorder API"`)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, message, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				unauthorized(ctx, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			unauthorized(ctx, "Authentication required")
			return
		}

		parts := strings.SplitN(credentials, ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

// mapSessionError converts lifecycle errors to HTTP problem responses.
// Device and encoder failures are conflicts: the session is healthy,
// the command just could not take effect.
func (s *Server) mapSessionError(err error) error {
	if errors.Is(err, session.ErrNoArtifact) {
		return huma.Error404NotFound("no recording available for download")
	}
	var sessErr *session.Error
	if errors.As(err, &sessErr) {
		switch sessErr.Code {
		case session.ErrCodeDevice, session.ErrCodeEncoder:
			return huma.Error409Conflict(sessErr.Message)
		}
	}
	return huma.Error500InternalServerError(fmt.Sprintf("session operation failed: %v", err))
}
