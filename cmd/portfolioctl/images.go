package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	queryLimit int
	queryJSON  bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Inspect the image metadata table",
}

var imagesQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the most recent image rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := imageStore()
		if err != nil {
			return err
		}
		rows, err := store.Recent(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UPLOADED\tFILENAME\tSIZE\tURL")
		for _, row := range rows {
			size := "-"
			if row.Size != nil {
				size = fmt.Sprint(*row.Size)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.UploadedAt.Format(time.RFC3339), row.Filename, size, row.URL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%s rows\n", boldCyan(len(rows)))
		return nil
	},
}

func init() {
	imagesQueryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 200, "maximum rows to show")
	imagesQueryCmd.Flags().BoolVar(&queryJSON, "json", false, "print rows as JSON")

	imagesCmd.AddCommand(imagesQueryCmd)
}
