package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dialogue/internal/audit"
)

var historyFlags struct {
	conversation string
	status       string
	limit        int
	jsonOut      bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent dialogue turns from the journal",
	Long: `Prints the most recent journalled turns, newest first.

Example:
  graylogic-dialogue history --limit 20
  graylogic-dialogue history --conversation 3f2a... --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.conversation, "conversation", "", "only this conversation")
	f.StringVar(&historyFlags.status, "status", "", "only this status: request, confirm, resolved or failed")
	f.IntVar(&historyFlags.limit, "limit", 20, "maximum turns to print (max 200)")
	f.BoolVar(&historyFlags.jsonOut, "json", false, "print as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-only CLI connection

	res, err := audit.NewSQLiteRepository(db.DB).List(ctx, audit.Filter{
		ConversationID: historyFlags.conversation,
		Status:         historyFlags.status,
		Limit:          historyFlags.limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCONVERSATION\tFORM\tSTATUS\tDEVICES\tMESSAGE")
	for _, t := range res.Turns {
		msg := t.Message
		if msg == "" && t.Requested != "" {
			msg = "asked for " + t.Requested
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.CreatedAt.Local().Format(time.DateTime), t.ConversationID, t.Form, t.Status,
			strings.Join(t.Devices, ","), msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d turns\n", len(res.Turns), res.Total)
	return nil
}
