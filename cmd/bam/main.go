package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bam-go/internal/app"
	"bam-go/internal/bam"
	"bam-go/internal/config"
	"bam-go/internal/encryption"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "MergeOptional").
func newApp(operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// confirm asks for interactive confirmation on destructive commands. A
// non-terminal stdin requires --yes.
func confirm(prompt string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal; pass --yes to proceed")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func formatSize(n int64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GiB", float64(n)/float64(gib))
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/float64(mib))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bam",
	Short: "Game archive consolidation tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var (
	flagGameDir    string
	flagModsDir    string
	flagProfileDir string
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(flagGameDir, flagModsDir, flagProfileDir, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Game Dir: %s\n", cfg.GameDir)
		fmt.Printf("Mods Dir: %s\n", cfg.ModsDir)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Game Dir:    %s\n", cfg.GameDir)
		fmt.Printf("Mods Dir:    %s\n", cfg.ModsDir)
		fmt.Printf("Profile Dir: %s\n", cfg.ProfileDir)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Codec Tool:  %s\n", cfg.Codec.ToolPath)
		fmt.Printf("Output Name: %s\n", cfg.Merge.OutputName)
		fmt.Printf("Encryption:  %s\n", cfg.Snapshot.Encryption.Type)
		return nil
	},
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.Snapshot.Encryption.Type != "age" {
			return fmt.Errorf("snapshot encryption is %q; set it to \"age\" first", cfg.Snapshot.Encryption.Type)
		}

		enc := encryption.NewAgeEncryptor(cfg.Snapshot.Encryption)
		if err := enc.Setup(); err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		fmt.Printf("Recipient written to %s\n", cfg.Snapshot.Encryption.PublicKeyPath)
		fmt.Printf("Identity written to %s\n", cfg.Snapshot.Encryption.PrivateKeyPath)
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the codec tool and game installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Check")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Validate(); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

// count command
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count archives by category against the engine limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Count")
		if err != nil {
			return err
		}
		defer a.Close()

		census, err := a.Count()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"CATEGORY", "GENERAL", "TEXTURE"})
		rows := []struct {
			name  string
			count bam.StreamCount
		}{
			{"base-main", census.BaseMain},
			{"dlc", census.DLC},
			{"optional", census.Optional},
			{"vendor-locked", census.VendorLocked},
			{"new-content", census.NewContent},
			{"replacement", census.Replacement},
		}
		for _, r := range rows {
			table.Append([]string{r.name, fmt.Sprintf("%d", r.count.General), fmt.Sprintf("%d", r.count.Texture)})
		}
		table.SetFooter([]string{
			"total",
			fmt.Sprintf("%d / %d", census.GeneralTotal, bam.GeneralArchiveLimit),
			fmt.Sprintf("%d / %d", census.TextureTotal, bam.TextureArchiveLimit),
		})
		table.Render()

		if census.GeneralTotal > bam.GeneralArchiveLimit || census.TextureTotal > bam.TextureArchiveLimit {
			fmt.Println("\nWARNING: archive count exceeds an engine limit")
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active units and their archives in precedence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		units, err := a.List()
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Println("No active units with archives.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"RANK", "UNIT", "ARCHIVES", "STREAMS", "SIZE", "SNAPSHOT"})
		for _, u := range units {
			rank := "-"
			if u.Rank >= 0 {
				rank = fmt.Sprintf("%d", u.Rank)
			}
			var streams []string
			if u.HasGeneral {
				streams = append(streams, "general")
			}
			if u.HasTexture {
				streams = append(streams, "texture")
			}
			snap := ""
			if u.HasSnapshot {
				snap = "yes"
			}
			table.Append([]string{
				rank,
				u.Unit,
				fmt.Sprintf("%d", u.Archives),
				strings.Join(streams, ","),
				formatSize(u.TotalSize),
				snap,
			})
		}
		table.Render()
		return nil
	},
}

// merge command
var (
	flagMergeName string
	flagMergeYes  bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [UNIT...]",
	Short: "Merge archives into a single output unit",
	Long: `Merge consolidates archives into one output unit. With no arguments all
active optional content in the base installation tree is merged; with unit
names the named external units are merged. Originals are removed after the
merge is verified; a snapshot allows a full restore.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "all active optional content"
		operation := "MergeOptional"
		if len(args) > 0 {
			what = fmt.Sprintf("%d unit(s)", len(args))
			operation = "MergeUnits"
		}
		ok, err := confirm(fmt.Sprintf("Merge %s and remove the originals?", what), flagMergeYes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		a, err := newApp(operation)
		if err != nil {
			return err
		}
		defer a.Close()

		var result *bam.MergeResult
		if len(args) == 0 {
			result, err = a.MergeOptional(context.Background(), flagMergeName)
		} else {
			result, err = a.MergeUnits(context.Background(), args, flagMergeName)
		}
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}

		fmt.Printf("Merged %d source archive(s) into unit %s\n", result.SourceCount, result.Unit)
		for _, archive := range result.Archives {
			fmt.Printf("  %s\n", archive)
		}
		if result.AudioFiles > 0 {
			fmt.Printf("Separated %d audio file(s)\n", result.AudioFiles)
		}
		fmt.Printf("Snapshot: %s\n", result.SnapshotID)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT_ID",
	Short: "Roll a merge back from its snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Restore(args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %d file(s) from snapshot %s (unit %s)\n",
			len(result.Restored), result.SnapshotID, result.Unit)
		return nil
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage merge snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Snapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Snapshots()
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No snapshots retained.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "UNIT", "CREATED_AT", "SOURCES"})
		for _, rec := range recs {
			table.Append([]string{
				rec.ID,
				rec.Unit,
				rec.CreatedAt.Format(time.RFC3339),
				fmt.Sprintf("%d", rec.SourceCount),
			})
		}
		table.Render()
		return nil
	},
}

var flagPruneYes bool

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune SNAPSHOT_ID",
	Short: "Delete a snapshot bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := confirm(fmt.Sprintf("Delete snapshot %s? The merge can no longer be restored.", args[0]), flagPruneYes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		a, err := newApp("PruneSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PruneSnapshot(args[0]); err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		fmt.Printf("Snapshot %s deleted\n", args[0])
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status UNIT",
	Short: "Show one unit's archives, stubs and registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Status(args[0])
		if err != nil {
			return err
		}

		if !status.Present {
			fmt.Printf("Unit %s: directory not found\n", status.Unit)
		} else {
			fmt.Printf("Unit %s:\n", status.Unit)
		}
		fmt.Printf("  Registered: %v\n", status.Registered)
		for _, archive := range status.Archives {
			fmt.Printf("  archive  %s  %s\n", archive.Name, formatSize(archive.Size))
		}
		for _, stub := range status.Stubs {
			fmt.Printf("  stub     %s\n", stub)
		}
		for _, snap := range status.Snapshots {
			fmt.Printf("  snapshot %s  %s  %d file(s)\n",
				snap.ID, snap.CreatedAt.Format(time.RFC3339), len(snap.Entries))
		}
		return nil
	},
}

// order command
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Show the resolved unit precedence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("LoadOrder")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.LoadOrder()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No priority list; all units are active.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%4d  %s\n", e.Rank, e.Name)
		}
		return nil
	},
}

// cc command
var ccCmd = &cobra.Command{
	Use:   "cc",
	Short: "Manage the optional-content descriptor",
}

var ccEnableCmd = &cobra.Command{
	Use:   "enable PLUGIN",
	Short: "Activate an optional-content plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnableOptional")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.EnableOptional(args[0]); err != nil {
			return err
		}
		fmt.Printf("Enabled %s\n", args[0])
		return nil
	},
}

var ccDisableCmd = &cobra.Command{
	Use:   "disable PLUGIN",
	Short: "Deactivate an optional-content plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DisableOptional")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DisableOptional(args[0]); err != nil {
			return err
		}
		fmt.Printf("Disabled %s\n", args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			line := fmt.Sprintf("#%d  %-14s  %-20s  %s  %-10s  %s",
				op.ID,
				op.Kind,
				op.Unit,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
			if op.Reason != "" {
				line += "  (" + op.Reason + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)
	configInitCmd.Flags().StringVar(&flagGameDir, "game-dir", "", "Base game installation directory")
	configInitCmd.Flags().StringVar(&flagModsDir, "mods-dir", "", "External mod unit directory")
	configInitCmd.Flags().StringVar(&flagProfileDir, "profile-dir", "", "Profile directory holding modlist.txt and plugins.txt")
	configInitCmd.MarkFlagRequired("game-dir")
	configInitCmd.MarkFlagRequired("mods-dir")
	configInitCmd.MarkFlagRequired("profile-dir")

	// snapshots subcommands
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	snapshotsPruneCmd.Flags().BoolVarP(&flagPruneYes, "yes", "y", false, "Skip confirmation")

	// cc subcommands
	ccCmd.AddCommand(ccEnableCmd)
	ccCmd.AddCommand(ccDisableCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&flagMergeName, "name", "", "Output unit name (defaults to the configured name)")
	mergeCmd.Flags().BoolVarP(&flagMergeYes, "yes", "y", false, "Skip confirmation")
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(ccCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
