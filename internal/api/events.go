package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/tisianewembou/NextWavePt3/internal/events"
)

// registerSSERoutes registers the native huma SSE endpoint. Every
// lifecycle event the bus carries streams here: state changes, elapsed
// ticks, errors, artifacts, and log lines.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of session state changes, elapsed ticks, errors, and saved artifacts",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state-changed":     events.StateChangedEvent{},
		"elapsed-tick":      events.ElapsedTickEvent{},
		"camera-acquired":   events.CameraAcquiredEvent{},
		"camera-error":      events.CameraErrorEvent{},
		"recording-started": events.RecordingStartedEvent{},
		"recording-stopped": events.RecordingStoppedEvent{},
		"encoder-error":     events.EncoderErrorEvent{},
		"artifact-saved":    events.ArtifactSavedEvent{},
		"log-entry":         events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StateChangedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.ElapsedTickEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.CameraAcquiredEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.CameraErrorEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.RecordingStartedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.RecordingStoppedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.EncoderErrorEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.ArtifactSavedEvent](s.options.Bus, eventCh),
			events.SubscribeToChannel[events.LogEntryEvent](s.options.Bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial snapshot so a client that connects mid-session
		// renders the right controls immediately.
		snapshot := s.options.Controller.Snapshot()
		if err := send.Data(events.StateChangedEvent{
			From:      snapshot.State,
			To:        snapshot.State,
			Status:    snapshot.StatusMessage,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
