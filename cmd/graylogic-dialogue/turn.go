package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dialogue/internal/audit"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
)

var turnFlags struct {
	form      string
	satellite string
	input     dialogue.Input
	yes       bool
	dryRun    bool
	jsonOut   bool
}

var turnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Play one dialogue turn from the command line",
	Long: `Opens a conversation, feeds it the given slot values and prints the reply.

Example:
  graylogic-dialogue turn --action "turn up" --device lamp --location lounge
  graylogic-dialogue turn --form locate --device thermostat --parameter temperature

A resolved adjust form is applied through the configured transport; use
--dry-run to only log the commands.`,
	Args: cobra.NoArgs,
	RunE: runTurn,
}

func init() {
	f := turnCmd.Flags()
	f.StringVar(&turnFlags.form, "form", dialogue.FormAdjust, "form to fill: adjust or locate")
	f.StringVar(&turnFlags.satellite, "satellite", "", "device or area id that heard the request")
	f.StringVar(&turnFlags.input.Location, "location", "", "spoken area or floor name")
	f.StringVar(&turnFlags.input.Device, "device", "", "spoken device name, id or domain")
	f.StringVar(&turnFlags.input.Parameter, "parameter", "", "attribute to read or change")
	f.StringVar(&turnFlags.input.Action, "action", "", "spoken action, e.g. \"turn off\" or \"set\"")
	f.StringVar(&turnFlags.input.Amount, "amount", "", "spoken amount, e.g. \"40 percent\"")
	f.BoolVarP(&turnFlags.yes, "yes", "y", false, "answer yes when asked to confirm several devices")
	f.BoolVar(&turnFlags.dryRun, "dry-run", false, "log commands instead of sending them")
	f.BoolVar(&turnFlags.jsonOut, "json", false, "print the full reply as JSON")
}

func runTurn(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}
	if turnFlags.dryRun {
		cfg.Dispatch.Transport = config.TransportLog
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-mostly CLI connection

	var mqttClient *mqtt.Client
	if cfg.Dispatch.Transport == config.TransportMQTT {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer mqttClient.Close() //nolint:errcheck // Best-effort disconnect
	}

	src, err := buildSource(cfg, db, log)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, src, log)
	if err != nil {
		return err
	}
	dispatcher, reader, err := buildDispatch(cfg, mqttClient, log)
	if err != nil {
		return err
	}
	svc := newDialogue(cfg, store, newEngine(cfg, store, dispatcher, reader, log), log)

	journal := audit.NewJournal(audit.NewSQLiteRepository(db.DB))
	journal.SetLogger(log.Component("audit"))
	svc.AddObserver(journal)
	defer func() {
		// Run with a cancelled context writes what is queued and returns.
		done, cancel := context.WithCancel(context.Background())
		cancel()
		journal.Run(done)
	}()

	conv, err := svc.Start(ctx, turnFlags.form, turnFlags.satellite)
	if err != nil {
		return err
	}
	reply, err := svc.Turn(ctx, conv.ID, turnFlags.input)
	if err != nil {
		return err
	}
	if reply.Outcome.Status == dialogue.StatusConfirm && turnFlags.yes {
		if reply, err = svc.Confirm(ctx, conv.ID, true); err != nil {
			return err
		}
	}
	if reply.Outcome.Status == dialogue.StatusResolved && reply.Receipt == nil {
		if reply, err = svc.Submit(ctx, conv.ID); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if turnFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	fmt.Fprintln(out, reply.Message())
	return nil
}
