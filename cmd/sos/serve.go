package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ahmadsaubani/go-sos-lib/config"
	"github.com/ahmadsaubani/go-sos-lib/httpapi"
	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/trigger"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger and settings API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openService(true)
			if err != nil {
				return err
			}
			defer a.close()

			if listen != "" {
				a.cfg.Listen = listen
			}

			gin.SetMode(gin.ReleaseMode)
			h := httpapi.NewHandler(a.svc, &a.cfg.Volume, a.logger)
			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           h.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.logger.Infof("Starting server on %s (policy=%s, network=%s)", a.cfg.Listen, a.cfg.Alerts.Dispatch.Policy, a.cfg.Network.Mode)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
				a.logger.Info("Shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			a.svc.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides listen)")
	return cmd
}

func triggerCmd() *cobra.Command {
	var (
		source string
		wait   bool
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Raise one alert and print the per-channel outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := trigger.ParseSource(source)
			if err != nil {
				return err
			}

			a, err := openService(false, triggerConfig(wait))
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Trigger(cmd.Context(), src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, line := range res.Lines() {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, res.Summary())

			if wait && a.rec != nil && a.rec.IsRecording() {
				fmt.Fprintln(out, "Recording ambient audio...")
				path, err := a.rec.Wait(cmd.Context())
				if err != nil && !errors.Is(err, recorder.ErrNotRecording) {
					return err
				}
				if path != "" {
					fmt.Fprintln(out, "Saved", path)
				}
			}
			a.svc.Wait()

			if !res.Success {
				return errors.New("alert was not delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "button", "Trigger source (button, volume_keys, widget)")
	cmd.Flags().BoolVar(&wait, "wait", true, "Keep running until the recording finishes; without it the recording is cut short and no audio follow-up is sent")
	return cmd
}

// triggerConfig drops the audio follow-up when the command will not wait:
// the recording ends when the command exits, so there is no finished file.
func triggerConfig(wait bool) func(*config.Config) {
	return func(cfg *config.Config) {
		if !wait {
			cfg.Alerts.AudioFollowUp = false
		}
	}
}
