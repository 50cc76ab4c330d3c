package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/tisianewembou/NextWavePt3/cmd"
	"github.com/tisianewembou/NextWavePt3/internal/api"
	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/config"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/encoder"
	"github.com/tisianewembou/NextWavePt3/internal/events"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/metrics"
	"github.com/tisianewembou/NextWavePt3/internal/pipeline"
	"github.com/tisianewembou/NextWavePt3/internal/preview"
	"github.com/tisianewembou/NextWavePt3/internal/session"
	"github.com/tisianewembou/NextWavePt3/internal/systemd"
	"github.com/tisianewembou/NextWavePt3/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Recorder settings
	RecordingsDir string `help:"Directory recordings are saved to" default:"recordings" toml:"recorder.output_dir" env:"RECORDER_OUTPUT_DIR"`
	VideoDevice   string `help:"Video device node (empty = first usable)" default:"" toml:"recorder.video_device" env:"RECORDER_VIDEO_DEVICE"`
	AudioDevice   string `help:"ALSA audio capture device" default:"default" toml:"recorder.audio_device" env:"RECORDER_AUDIO_DEVICE"`
	DisableAudio  bool   `help:"Record video only" default:"false" toml:"recorder.disable_audio" env:"RECORDER_DISABLE_AUDIO"`
	Bitrate       string `help:"Video bitrate" default:"2.5M" toml:"recorder.bitrate" env:"RECORDER_BITRATE"`
	FPS           int    `help:"Capture frame rate" default:"30" toml:"recorder.fps" env:"RECORDER_FPS"`

	// Preview settings
	PreviewAddr string `help:"Loopback address for preview RTP" default:"127.0.0.1:5004" toml:"preview.rtp_addr" env:"PREVIEW_RTP_ADDR"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Update settings
	UpdateRepository string `help:"GitHub repository for self-updates" default:"tisianewembou/NextWavePt3" toml:"update.repository" env:"UPDATE_REPOSITORY"`
	UpdatePrerelease bool   `help:"Allow prerelease updates" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession  string `help:"Session lifecycle logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingDevices  string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingEncoder  string `help:"Encoder logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER"`
	LoggingPipeline string `help:"Capture pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingFfmpeg   string `help:"FFmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingPreview  string `help:"WebRTC preview logging level" default:"info" toml:"logging.preview" env:"LOGGING_PREVIEW"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	// Create Huma CLI
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session":  opts.LoggingSession,
				"devices":  opts.LoggingDevices,
				"encoder":  opts.LoggingEncoder,
				"pipeline": opts.LoggingPipeline,
				"ffmpeg":   opts.LoggingFfmpeg,
				"preview":  opts.LoggingPreview,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingHTTP,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Hot-reload logging levels when the config file changes
		logWatcher := config.NewConfigWatcher(
			opts.Config,
			func(path string) (logging.Config, error) {
				return config.LoadLoggingConfig(path), nil
			},
			logger,
			config.WithDebounce[logging.Config](1500*time.Millisecond),
		)
		logWatcher.OnReload(func(cfg logging.Config) {
			logger.Info("Reloading logging levels from config")
			logging.ApplyLevels(cfg)
		})

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward log entries to SSE clients
		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Recordings store
		store, storeErr := artifact.NewStore(opts.RecordingsDir)
		if storeErr != nil {
			logger.Error("Failed to open recordings directory", "error", storeErr, "dir", opts.RecordingsDir)
			os.Exit(1)
		}

		// Capture device manager
		constraints := device.DefaultConstraints()
		constraints.DeviceHint = opts.VideoDevice
		constraints.Audio = !opts.DisableAudio
		if opts.AudioDevice != "" {
			constraints.AudioDevice = opts.AudioDevice
		}
		deviceManager := device.NewManager(device.WithPreviewAddr(opts.PreviewAddr))

		// Capture pipeline and encoder
		supervisor := pipeline.NewSupervisor(pipeline.WithFPS(opts.FPS))

		// A mid-recording pipeline crash surfaces through the normal stop
		// path: the fragment reader reports the failure and the session
		// reverts to camera-ready with the encoder error message.
		var controller *session.Controller
		recorder := encoder.NewRecorder(
			encoder.NewPipelineSource(supervisor, opts.Bitrate),
			encoder.WithFailureHandler(func(err error) {
				logger.Error("Recording pipeline failed", "error", err)
				if controller != nil {
					_ = controller.RequestStop(context.Background())
				}
			}),
		)

		// Session lifecycle coordinator
		controller = session.NewController(deviceManager, recorder, eventBus,
			session.WithConstraints(constraints),
			session.WithArtifactSink(func(a *artifact.Artifact) {
				filename, saveErr := store.Save(a)
				if saveErr != nil {
					logger.Error("Failed to save recording", "error", saveErr)
					return
				}
				eventBus.Publish(events.ArtifactSavedEvent{
					Filename:  filename,
					Size:      a.Size(),
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}),
		)

		// WebRTC preview: loopback RTP from the pipeline fans out to
		// browser peers.
		previewHub := preview.NewHub()
		previewSource := preview.NewSource(opts.PreviewAddr, previewHub)
		previewManager := preview.NewManager(previewHub, preview.Config{})

		// The preview pipeline follows the capture session.
		eventBus.Subscribe(func(_ events.CameraAcquiredEvent) {
			capture := controller.Capture()
			if capture == nil {
				return
			}
			if startErr := supervisor.StartPreview(capture); startErr != nil {
				logger.Error("Failed to start preview pipeline", "error", startErr)
			}
		})
		eventBus.Subscribe(func(e events.StateChangedEvent) {
			if e.To == session.StateIdle.String() {
				supervisor.Stop()
			}
		})

		// Self-update service
		updateService := updater.NewService(updater.Options{
			Repository: opts.UpdateRepository,
			Prerelease: opts.UpdatePrerelease,
		})
		if !updateService.IsEnabled() {
			logger.Warn("Self-update unavailable", "reason", updateService.DisabledReason())
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Controller:        controller,
			Store:             store,
			Preview:           previewManager,
			Updater:           updateService,
			Bus:               eventBus,
			PrometheusHandler: metrics.Handler(),
		})

		hooks.OnStart(func() {
			// The RTP listener must be bound before any preview pipeline
			// starts sending to it.
			if startErr := previewSource.Start(); startErr != nil {
				logger.Error("Failed to start preview RTP listener", "error", startErr)
				os.Exit(1)
			}

			if watchErr := logWatcher.Start(); watchErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", watchErr)
			}

			systemd.NotifyReady()
			stopWatchdog := systemd.StartWatchdog()
			defer stopWatchdog()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			systemd.NotifyStopping()
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Finalize any active recording and release the camera before
			// the pipeline goes away.
			controller.Teardown(context.Background())
			supervisor.Shutdown()

			previewManager.Stop()
			previewSource.Stop()
			_ = logWatcher.Stop()
		})
	})

	// Add devices command
	devicesCmd := cmd.CreateDevicesCmd()
	cli.Root().AddCommand(devicesCmd)

	// Add record command
	recordCmd := cmd.CreateRecordCmd()
	cli.Root().AddCommand(recordCmd)

	// Run the CLI
	cli.Run()
}
