package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/pkg/dto"
)

var accessLogCmd = &cobra.Command{
	Use:   "access-log",
	Short: "Show recent access log entries",
	Long: `Shows access log entries, newest first.

Examples:
  # Last 20 entries
  faceadmin access-log

  # Only unknown faces
  faceadmin access-log --recognized=false --limit 100`,
	Args: cobra.NoArgs,
	RunE: runAccessLog,
}

func init() {
	rootCmd.AddCommand(accessLogCmd)

	accessLogCmd.Flags().Int("limit", 20, "Number of entries to show")
	accessLogCmd.Flags().Int("offset", 0, "Offset for pagination")
	accessLogCmd.Flags().String("recognized", "", "Filter by outcome (true or false)")
}

func runAccessLog(cmd *cobra.Command, args []string) error {
	recognized, err := optionalBool(cmd, "recognized")
	if err != nil {
		return err
	}
	q := models.AccessLogQuery{
		Recognized: recognized,
		Limit:      mustGetInt(cmd, "limit"),
		Offset:     mustGetInt(cmd, "offset"),
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, total, err := db.ListAccessLog(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to list access log: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No access log entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tRECOGNIZED\tDISTANCE")
	fmt.Fprintln(w, "----\t----\t----------\t--------")
	for i := range entries {
		e := &entries[i]
		distance := "-"
		if e.Distance != nil {
			distance = fmt.Sprintf("%.4f", *e.Distance)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", e.Timestamp.Local().Format(dto.TimestampLayout), e.Name, e.Recognized, distance)
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d entries\n", len(entries), total)
	return nil
}
