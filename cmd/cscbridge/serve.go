package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srg/cscbridge/internal/bridge"
	"github.com/srg/cscbridge/internal/config"
	"github.com/srg/cscbridge/internal/events"
	"github.com/srg/cscbridge/internal/gatt/goble"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	Long: `Publishes the enabled GATT profiles, advertises them and notifies every subscribed
central once per interval until interrupted.

Sensor values come from one source:
  script  Lua ride simulator; the built-in ride is used unless --script is given
  serial  PTY line protocol; the slave path is logged (and linked with --link):
            wheel <revs> <event_s>    crank <revs> <event_s>
            hr <bpm>                  speed <m/s>
            strides <count>           distance <m>
            state <channel> <name>
  none    nothing; useful with an external tool driving the PTY of another instance

Example:
  cscbridge serve
  cscbridge serve --source serial --link /tmp/cscbridge
  cscbridge serve --profiles csc,hr --features wheel --interval 500ms`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("name", "", "Advertised device name")
	f.StringSlice("profiles", nil, "Profiles to publish (csc, rsc, hr)")
	f.StringSlice("features", nil, "CSC features (wheel, crank)")
	f.Duration("interval", 0, "Notification interval")
	f.Bool("no-advertise", false, "Publish services without advertising")
	f.String("source", "", "Sensor source (script, serial, none)")
	f.String("script", "", "Lua ride script")
	f.String("link", "", "Symlink to create for the serial PTY")
	f.Bool("no-color", false, "Disable colored event output")
	f.Bool("status", false, "Print the final bridge status as JSON on exit")
}

// applyServeFlags overrides config values with the flags that were set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("name") {
		cfg.Device.Name, _ = f.GetString("name")
	}
	if f.Changed("profiles") {
		cfg.Profiles.Enabled, _ = f.GetStringSlice("profiles")
	}
	if f.Changed("features") {
		cfg.Profiles.CSCFeatures, _ = f.GetStringSlice("features")
	}
	if f.Changed("interval") {
		cfg.Notify.Interval, _ = f.GetDuration("interval")
	}
	if noAdv, _ := f.GetBool("no-advertise"); noAdv {
		cfg.Device.Advertise = false
	}
	if f.Changed("source") {
		cfg.Source.Kind, _ = f.GetString("source")
	}
	if f.Changed("script") {
		cfg.Source.Script.Path, _ = f.GetString("script")
		if !f.Changed("source") {
			cfg.Source.Kind = "script"
		}
	}
	if f.Changed("link") {
		cfg.Source.Serial.Link, _ = f.GetString("link")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := goble.New(logger)
	if err != nil {
		return err
	}
	sources, err := bridge.SourcesFromConfig(cfg.Source, logger)
	if err != nil {
		_ = transport.Close()
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	view := newEventView(cmd.OutOrStdout(), !noColor)

	svc, err := bridge.New(bridge.Options{
		Config:    cfg,
		Transport: transport,
		Sources:   sources,
		Sink:      view.Print,
		Logger:    logger,
	})
	if err != nil {
		_ = transport.Close()
		return err
	}

	if err := svc.Start(ctx); err != nil {
		_ = svc.Stop()
		return err
	}
	if len(svc.Status().Published) == 0 {
		_ = svc.Stop()
		return ErrNoProfilePublished
	}

	<-ctx.Done()
	logger.Info("Received interrupt signal, shutting down...")

	status := svc.Status()
	err = svc.Stop()
	if printStatus, _ := cmd.Flags().GetBool("status"); printStatus {
		printFinalStatus(cmd, status, svc.Journal())
	}
	return err
}

type finalStatus struct {
	bridge.Status
	Recent []events.Event `json:"recent_events"`
}

// printFinalStatus dumps the status taken before shutdown together with the most
// recent display events kept by the journal.
func printFinalStatus(cmd *cobra.Command, status bridge.Status, journal *events.Journal) {
	recent, err := journal.Drain()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "journal: %v\n", err)
	}
	out, err := json.MarshalIndent(finalStatus{Status: status, Recent: recent}, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
}
