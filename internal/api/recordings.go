package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tisianewembou/NextWavePt3/internal/api/models"
)

// registerRecordingRoutes exposes the on-disk recordings store: the
// saved-artifact list and a client-side upload path for browsers that
// recorded locally.
func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-recordings",
		Method:      http.MethodGet,
		Path:        "/api/recordings",
		Summary:     "List Recordings",
		Description: "List saved recordings in the output directory, newest first",
		Tags:        []string{"recordings"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.RecordingListResponse, error) {
		entries, err := s.options.Store.List()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list recordings", err)
		}

		recordings := make([]models.RecordingEntry, len(entries))
		for i, entry := range entries {
			recordings[i] = models.RecordingEntry{
				Filename: entry.Filename,
				Size:     entry.Size,
				Modified: entry.ModTime.UTC().Format(time.RFC3339),
			}
		}
		return &models.RecordingListResponse{
			Body: models.RecordingListData{
				Recordings: recordings,
				Count:      len(recordings),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "upload-recording",
		Method:      http.MethodPost,
		Path:        "/api/recordings",
		Summary:     "Upload Recording",
		Description: "Store a recording uploaded by the client; only webm, mp4, and ogg files are accepted",
		Tags:        []string{"recordings"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.UploadRecordingRequest) (*models.UploadRecordingResponse, error) {
		if input.Filename == "" {
			return nil, huma.Error400BadRequest("filename is required")
		}
		if len(input.RawBody) == 0 {
			return nil, huma.Error400BadRequest("empty upload")
		}

		filename, err := s.options.Store.SaveNamed(input.Filename, input.RawBody)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &models.UploadRecordingResponse{
			Body: models.UploadRecordingData{
				Filename: filename,
				Size:     int64(len(input.RawBody)),
			},
		}, nil
	})
}
