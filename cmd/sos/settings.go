package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/settings"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change the stored alert settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.Known(args[0]) {
				return fmt.Errorf("%w: %s", settings.ErrUnknownKey, args[0])
			}
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			v, err := settings.Load(a.store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting; the result must still validate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.Known(args[0]) {
				return fmt.Errorf("%w: %s", settings.ErrUnknownKey, args[0])
			}
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			st, err := settings.Read(a.store)
			if err != nil {
				return err
			}
			values := st.Values()
			values[args[0]] = args[1]
			return settings.Write(a.store, fromValues(values))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()

			st, err := settings.Read(a.store)
			if err != nil {
				return err
			}
			values := st.Values()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, key := range settings.Keys {
				v := values[key]
				if key == settings.KeyServerAuthToken && v != "" {
					v = "********"
				}
				fmt.Fprintf(w, "%s\t%s\n", key, v)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every stored setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore()
			if err != nil {
				return err
			}
			defer a.close()
			return settings.Clear(a.store)
		},
	})

	return cmd
}

func fromValues(v map[string]string) settings.Settings {
	return settings.Settings{
		SMSNumber:       v[settings.KeySMSNumber],
		UserName:        v[settings.KeyUserName],
		UserPhone:       v[settings.KeyUserPhone],
		ServerURL:       v[settings.KeyServerURL],
		ServerAuthToken: v[settings.KeyServerAuthToken],
		RecordingTime:   v[settings.KeyRecordingTime],
		Language:        v[settings.KeySelectedLanguage],
	}
}

func recordingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "List saved emergency recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rec := recorder.New(&recorder.Config{Dir: cfg.Recorder.Dir}, nil, nil, nil)
			list, err := rec.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recordings")
				return nil
			}

			var total uint64
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.SizeText, r.Age)
				total += uint64(r.Size)
			}
			fmt.Fprintf(w, "%d recordings\t%s\t\n", len(list), humanize.Bytes(total))
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return recorder.New(&recorder.Config{Dir: cfg.Recorder.Dir}, nil, nil, nil).Remove(args[0])
		},
	})

	return cmd
}
