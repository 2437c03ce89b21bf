package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sos "github.com/ahmadsaubani/go-sos-lib"
	"github.com/ahmadsaubani/go-sos-lib/config"
	"github.com/ahmadsaubani/go-sos-lib/logging"
	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/settings"
)

var (
	configFile   string
	settingsPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sos",
		Short: "Emergency alert daemon and CLI",
		Long: `sos raises emergency alerts over SMS, an alert server and optional
Mattermost, Telegram and email channels. It attaches location and an ambient
audio recording and keeps the user's alert settings in a local database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings-db", "", "Settings database path (overrides settings_path)")

	rootCmd.AddCommand(serveCmd(), triggerCmd(), settingsCmd(), recordingsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command may need. Fields are filled lazily by the
// open functions and released by close.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *settings.BoltStore
	rec    *recorder.Recorder
	svc    *sos.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	return cfg, nil
}

// openStore opens only the settings database.
func openStore() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := settings.OpenBolt(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: store}, nil
}

// openService builds the full alert pipeline. tune adjusts the loaded
// configuration before anything is built from it.
func openService(logToStdout bool, tune ...func(*config.Config)) (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}
	for _, fn := range tune {
		fn(a.cfg)
	}

	a.cfg.Logging.EnableStdout = a.cfg.Logging.EnableStdout && logToStdout
	a.logger, err = logging.New(&a.cfg.Logging)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if a.cfg.Recorder.Enabled {
		a.rec = recorder.New(&recorder.Config{Dir: a.cfg.Recorder.Dir}, recorder.NewCommandDevice(&a.cfg.Recorder.Capture), nil, a.logger)
	}

	a.svc = sos.New(&a.cfg.Alerts, sos.Deps{
		Store:    a.store,
		Network:  a.cfg.Checker(),
		Locators: a.cfg.Locators(),
		Recorder: a.rec,
		SMS:      a.cfg.SMSSender(),
		Logger:   a.logger,
	})
	return a, nil
}

func (a *app) close() {
	if a.rec != nil && a.rec.IsRecording() {
		a.rec.Stop()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}
