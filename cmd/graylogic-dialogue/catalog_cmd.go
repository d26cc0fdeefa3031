package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the inventory or import it into SQLite",
	Long: `Works on the inventory named by inventory.source.

Subcommands:
  show    - build the catalog and print counts and anomalies
  import  - load a YAML inventory into the SQLite store
  export  - write the current inventory as YAML`,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Build the catalog and print counts, anomalies and name collisions",
	Args:  cobra.NoArgs,
	RunE:  runCatalogShow,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <inventory.yaml>",
	Short: "Replace the SQLite inventory with a YAML file",
	Long: `Parses the file, checks that it builds, and replaces the SQLite
inventory in one transaction. Use with inventory.source: sqlite.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

var catalogExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the configured inventory as YAML (stdout when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogExport,
}

func init() {
	catalogShowCmd.Flags().BoolVar(&catalogJSON, "json", false, "print as JSON")
	catalogCmd.AddCommand(catalogShowCmd, catalogImportCmd, catalogExportCmd)
}

func runCatalogShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-mostly CLI connection

	src, err := buildSource(cfg, db, log)
	if err != nil {
		return err
	}
	inv, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}
	cat, err := catalog.Build(inv)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if catalogJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"source":     cfg.Inventory.Source,
			"stats":      cat.Stats(),
			"anomalies":  cat.Anomalies(),
			"collisions": cat.Collisions(),
		})
	}

	stats := cat.Stats()
	fmt.Fprintf(out, "source: %s\n", cfg.Inventory.Source)
	fmt.Fprintf(out, "floors: %d  areas: %d  devices: %d\n", stats.Floors, stats.Areas, stats.Devices)

	if len(cat.Anomalies()) > 0 {
		fmt.Fprintln(out, "\nanomalies:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, a := range cat.Anomalies() {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", a.Kind, a.Tier, a.ID, a.Ref)
		}
		tw.Flush()
	}
	if len(cat.Collisions()) > 0 {
		fmt.Fprintln(out, "\nname collisions:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range cat.Collisions() {
			fmt.Fprintf(tw, "  %s\t%q\tkept %s\tdropped %s\n", c.Kind, c.Name, c.KeptID, c.DroppedID)
		}
		tw.Flush()
	}
	return nil
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}

	inv, err := catalog.NewFileSource(args[0]).Load(ctx)
	if err != nil {
		return err
	}
	cat, err := catalog.Build(inv)
	if err != nil {
		return fmt.Errorf("inventory rejected: %w", err)
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-mostly CLI connection

	if err := catalog.NewSQLiteSource(db.DB).Save(ctx, inv); err != nil {
		return fmt.Errorf("saving inventory: %w", err)
	}

	stats := cat.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d floors, %d areas, %d devices into %s\n",
		stats.Floors, stats.Areas, stats.Devices, cfg.Database.Path)
	return nil
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-mostly CLI connection

	src, err := buildSource(cfg, db, log)
	if err != nil {
		return err
	}
	inv, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}
	data, err := catalog.MarshalYAML(inv)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	return nil
}
