package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tisianewembou/NextWavePt3/internal/api/models"
)

// registerSessionRoutes wires the lifecycle commands. Commands issued
// in the wrong state are accepted and ignored, mirroring how the
// recorder treats a double-click on a button that just disabled.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session Snapshot",
		Description: "Get the current session state, status message, elapsed time, and artifact availability",
		Tags:        []string{"session"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: s.options.Controller.Snapshot()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "request-camera",
		Method:      http.MethodPost,
		Path:        "/api/session/camera",
		Summary:     "Request Camera",
		Description: "Acquire the webcam and microphone and enter camera-ready",
		Tags:        []string{"session"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		if err := s.options.Controller.RequestCamera(ctx); err != nil {
			return nil, s.mapSessionError(err)
		}
		return s.commandResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "request-record",
		Method:      http.MethodPost,
		Path:        "/api/session/record",
		Summary:     "Start Recording",
		Description: "Start a recording; any previous artifact is discarded first",
		Tags:        []string{"session"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		if err := s.options.Controller.RequestRecord(ctx); err != nil {
			return nil, s.mapSessionError(err)
		}
		return s.commandResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "request-stop",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop Recording",
		Description: "Finalize the active recording into a downloadable artifact",
		Tags:        []string{"session"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		if err := s.options.Controller.RequestStop(ctx); err != nil {
			return nil, s.mapSessionError(err)
		}
		return s.commandResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "download-recording",
		Method:      http.MethodGet,
		Path:        "/api/session/download",
		Summary:     "Download Recording",
		Description: "Download the finalized recording; repeat-safe, never changes state",
		Tags:        []string{"session"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DownloadResponse, error) {
		art, err := s.options.Controller.RequestDownload()
		if err != nil {
			return nil, s.mapSessionError(err)
		}
		return &models.DownloadResponse{
			ContentType:        art.MimeType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", art.Filename()),
			Body:               art.Data,
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "teardown-session",
		Method:      http.MethodDelete,
		Path:        "/api/session",
		Summary:     "Teardown Session",
		Description: "Stop any recording, stop the timer, and release the capture devices",
		Tags:        []string{"session"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		s.options.Controller.Teardown(ctx)
		return s.commandResponse(), nil
	})
}

func (s *Server) commandResponse() *models.CommandResponse {
	snapshot := s.options.Controller.Snapshot()
	return &models.CommandResponse{
		Body: models.CommandData{
			State:   snapshot.State,
			Message: snapshot.StatusMessage,
		},
	}
}
