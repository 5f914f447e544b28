package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/example/photoauth/internal/capture"
	"github.com/example/photoauth/internal/checkin"
	"github.com/example/photoauth/internal/config"
	"github.com/example/photoauth/internal/logging"
	"github.com/example/photoauth/internal/preview"
)

// report is the machine readable result of one CLI attempt.
type report struct {
	ObjectKey     string `json:"object_key,omitempty" yaml:"object_key,omitempty"`
	Status        string `json:"status" yaml:"status"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Message       string `json:"message" yaml:"message"`
	FirstName     string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
}

func newReport(state preview.State) report {
	r := report{
		ObjectKey:     state.ObjectKey,
		Status:        string(state.Status),
		Authenticated: state.Authenticated,
		Message:       state.Message,
	}
	if state.Identity != nil {
		r.FirstName = state.Identity.FirstName
		r.LastName = state.Identity.LastName
	}
	return r
}

func newAuthenticateCmd() *cobra.Command {
	var (
		file      string
		useCamera bool
		output    string
		warmup    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Authenticate one photo from a file or the camera",
		Example: `  # Authenticate a photo on disk
  photoauth authenticate --file attendee.jpg

  # Take a photo with the configured camera and print YAML
  photoauth authenticate --camera --output yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file != "") == useCamera {
				return errors.New("exactly one of --file or --camera is required")
			}
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unsupported output format %q", output)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			var camera *capture.Session
			if useCamera {
				camera = newCamera(cfg, logger)
			}
			kiosk := checkin.New(a.usecase, camera, nil, logger)
			defer kiosk.Close() //nolint:errcheck

			if err := capturePhoto(cmd.Context(), kiosk, file, warmup); err != nil {
				return err
			}

			state, authErr := kiosk.Authenticate(cmd.Context())
			if authErr != nil {
				logger.Debug("authentication attempt failed", zap.Error(authErr))
			}
			if err := writeReport(cmd.OutOrStdout(), output, newReport(state)); err != nil {
				return err
			}
			return authErr
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Photo to authenticate")
	cmd.Flags().BoolVar(&useCamera, "camera", false, "Take the photo with the configured camera")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().DurationVar(&warmup, "warmup", time.Second, "How long the camera runs before the photo is taken")

	return cmd
}

func capturePhoto(ctx context.Context, kiosk *checkin.Kiosk, file string, warmup time.Duration) error {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open photo: %w", err)
		}
		defer f.Close()
		_, err = kiosk.SelectFile(f)
		return err
	}

	if state := kiosk.SetCamera(ctx, true); !state.CameraActive {
		return errors.New(state.Message)
	}
	select {
	case <-time.After(warmup):
	case <-ctx.Done():
		return ctx.Err()
	}
	state, err := kiosk.Snapshot(ctx)
	if err != nil {
		return err
	}
	kiosk.SetCamera(ctx, false)
	if !state.HasImage() {
		return errors.New("camera produced no frame")
	}
	return nil
}

func writeReport(w io.Writer, format string, r report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		_, err := fmt.Fprintln(w, r.Message)
		return err
	}
}
