package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/encoder"
	"github.com/tisianewembou/NextWavePt3/internal/events"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/pipeline"
	"github.com/tisianewembou/NextWavePt3/internal/session"
)

// CreateRecordCmd creates the record command.
func CreateRecordCmd() *cobra.Command {
	var (
		deviceHint  string
		audioDevice string
		noAudio     bool
		outputDir   string
		duration    time.Duration
		bitrate     string
		fps         int
		logJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a presentation from the command line",
		Long: `Acquires the capture device, records for the given duration, and saves ` +
			`the finished file to the output directory. Runs the same session lifecycle ` +
			`as the HTTP API, without the server. Interrupt with Ctrl-C to finish early.`,
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("record")

			store, err := artifact.NewStore(outputDir)
			if err != nil {
				logger.Error("Failed to open output directory", "error", err, "dir", outputDir)
				os.Exit(1)
			}

			constraints := device.DefaultConstraints()
			constraints.DeviceHint = deviceHint
			if noAudio {
				constraints.Audio = false
			}
			if audioDevice != "" {
				constraints.AudioDevice = audioDevice
			}

			bus := events.New()
			manager := device.NewManager()
			supervisor := pipeline.NewSupervisor(pipeline.WithFPS(fps))
			recorder := encoder.NewRecorder(encoder.NewPipelineSource(supervisor, bitrate))

			// The sink runs off the stop path, so completion is signalled.
			savedCh := make(chan string, 1)
			controller := session.NewController(manager, recorder, bus,
				session.WithConstraints(constraints),
				session.WithArtifactSink(func(a *artifact.Artifact) {
					filename, saveErr := store.Save(a)
					if saveErr != nil {
						logger.Error("Failed to save recording", "error", saveErr)
						filename = ""
					}
					savedCh <- filename
				}),
			)

			ctx := context.Background()
			if err = controller.RequestCamera(ctx); err != nil {
				logger.Error("Camera acquisition failed", "error", err)
				os.Exit(1)
			}
			if err = controller.RequestRecord(ctx); err != nil {
				logger.Error("Failed to start recording", "error", err)
				controller.Teardown(ctx)
				supervisor.Shutdown()
				os.Exit(1)
			}

			logger.Info("Recording", "duration", duration.String())
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case <-time.After(duration):
			case <-sig:
				logger.Info("Interrupted, finalizing recording")
			}
			signal.Stop(sig)

			stopErr := controller.RequestStop(ctx)
			if stopErr != nil {
				controller.Teardown(ctx)
				supervisor.Shutdown()
				logger.Error("Failed to finalize recording", "error", stopErr)
				os.Exit(1)
			}

			var saved string
			select {
			case saved = <-savedCh:
			case <-time.After(10 * time.Second):
			}
			controller.Teardown(ctx)
			supervisor.Shutdown()

			if saved == "" {
				logger.Error("Recording produced no file")
				os.Exit(1)
			}
			fmt.Println(filepath.Join(store.Dir(), saved))
		},
	}

	cmd.Flags().StringVar(&deviceHint, "device", "", "Video device node (default: first usable)")
	cmd.Flags().StringVar(&audioDevice, "audio-device", "", "ALSA audio device (default: \"default\")")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Record video only")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "recordings", "Directory to save the recording in")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "How long to record")
	cmd.Flags().StringVar(&bitrate, "bitrate", "2.5M", "Video bitrate")
	cmd.Flags().IntVar(&fps, "fps", 30, "Capture frame rate")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
