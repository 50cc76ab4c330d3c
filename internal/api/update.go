package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tisianewembou/NextWavePt3/internal/updater"
)

// UpdateInfoResponse wraps the release check result.
type UpdateInfoResponse struct {
	Body updater.UpdateInfo
}

// UpdateStatusResponse wraps the updater state.
type UpdateStatusResponse struct {
	Body updater.Status
}

// registerUpdateRoutes exposes the self-update surface.
func (s *Server) registerUpdateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "check-update",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check For Update",
		Description: "Query GitHub releases for a newer version without downloading",
		Tags:        []string{"system"},
		Errors:      []int{401, 409, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*UpdateInfoResponse, error) {
		info, err := s.options.Updater.CheckForUpdate(ctx)
		if err != nil {
			return nil, s.mapUpdateError(err)
		}
		return &UpdateInfoResponse{Body: *info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-status",
		Method:      http.MethodGet,
		Path:        "/api/update",
		Summary:     "Update Status",
		Description: "Get the current updater state",
		Tags:        []string{"system"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*UpdateStatusResponse, error) {
		return &UpdateStatusResponse{Body: *s.options.Updater.GetStatus()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-update",
		Method:      http.MethodPost,
		Path:        "/api/update",
		Summary:     "Apply Update",
		Description: "Download and apply the latest release, then restart",
		Tags:        []string{"system"},
		Errors:      []int{401, 409, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*UpdateStatusResponse, error) {
		if err := s.options.Updater.ApplyUpdate(ctx); err != nil {
			return nil, s.mapUpdateError(err)
		}
		return &UpdateStatusResponse{Body: *s.options.Updater.GetStatus()}, nil
	})
}

func (s *Server) mapUpdateError(err error) error {
	var updErr *updater.Error
	if errors.As(err, &updErr) {
		switch updErr.Code {
		case updater.ErrCodeDisabled, updater.ErrCodeInvalidState, updater.ErrCodeNoUpdate:
			return huma.Error409Conflict(updErr.Message)
		case updater.ErrCodeCheckFailed, updater.ErrCodeApplyFailed:
			return huma.Error502BadGateway(updErr.Message)
		}
	}
	return huma.Error500InternalServerError("update operation failed", err)
}
