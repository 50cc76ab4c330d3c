package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tisianewembou/NextWavePt3/internal/api/models"
	"github.com/tisianewembou/NextWavePt3/internal/device"
)

// registerDeviceRoutes exposes capture device enumeration for the
// device picker in the UI.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Capture Devices",
		Description: "Enumerate video capture nodes visible to the recorder",
		Tags:        []string{"devices"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DeviceListResponse, error) {
		infos := device.List()
		return &models.DeviceListResponse{
			Body: models.DeviceListData{
				Devices: infos,
				Count:   len(infos),
			},
		}, nil
	})
}
