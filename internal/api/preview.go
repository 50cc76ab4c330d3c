package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tisianewembou/NextWavePt3/internal/api/models"
)

// registerPreviewRoutes handles the WebRTC signaling for the live
// camera mirror.
func (s *Server) registerPreviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "preview-webrtc",
		Method:      http.MethodPost,
		Path:        "/api/preview/webrtc",
		Summary:     "Preview WebRTC Offer",
		Description: "Exchange a WebRTC SDP offer for an answer carrying the live preview track",
		Tags:        []string{"preview"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PreviewOfferRequest) (*models.PreviewAnswerResponse, error) {
		if input.Body.SDP == "" {
			return nil, huma.Error400BadRequest("sdp offer is required")
		}
		if s.options.Controller.Capture() == nil {
			return nil, huma.Error409Conflict("no camera session; request the camera first")
		}

		answer, err := s.options.Preview.CreateConsumer(input.Body.SDP)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to create preview connection", err)
		}
		return &models.PreviewAnswerResponse{
			Body: models.PreviewAnswerData{SDP: answer},
		}, nil
	})
}
