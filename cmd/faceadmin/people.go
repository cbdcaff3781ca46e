package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List enrolled people",
	Long:  `Lists every person in the registry in enrollment order with their embedding count.`,
	Args:  cobra.NoArgs,
	RunE:  runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

func runPeople(cmd *cobra.Command, args []string) error {
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

	persons, err := db.ListPersons(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	if len(persons) == 0 {
		fmt.Println("No people enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMBEDDINGS\tIMAGE\tENROLLED\tUPDATED")
	fmt.Fprintln(w, "----\t----------\t-----\t--------\t-------")
	for i := range persons {
		p := &persons[i]
		image := "-"
		if p.SourceKey != "" {
			image = p.SourceKey
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", p.Name, len(p.Embeddings), image,
			p.CreatedAt.Local().Format(time.DateTime), p.UpdatedAt.Local().Format(time.DateTime))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d people\n", len(persons))
	return nil
}
