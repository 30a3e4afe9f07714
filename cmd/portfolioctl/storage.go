package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/portfolio/backend/internal/services"
	"github.com/portfolio/backend/internal/storage"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect and populate the object store",
}

var storageListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List every object, optionally under a prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := storageClient()
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		objects, err := client.ListAll(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, obj := range objects {
			fmt.Fprintf(w, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%s objects in %s\n", boldCyan(len(objects)), client.Bucket())
		return nil
	},
}

var storageHeadCmd = &cobra.Command{
	Use:   "head <key>",
	Short: "Show an object's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := storageClient()
		if err != nil {
			return err
		}
		info, err := client.HeadObject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", boldCyan("key:"), info.Key)
		fmt.Printf("%s %d\n", boldCyan("size:"), info.Size)
		fmt.Printf("%s %s\n", boldCyan("type:"), info.ContentType)
		fmt.Printf("%s %s\n", boldCyan("etag:"), info.ETag)
		fmt.Printf("%s %s\n", boldCyan("modified:"), info.LastModified.Format(time.RFC3339))
		fmt.Printf("%s %s\n", boldCyan("url:"), client.PublicURL(info.Key))
		return nil
	},
}

var presignTTL time.Duration

var storagePresignCmd = &cobra.Command{
	Use:   "presign <key>",
	Short: "Print a time-limited GET URL for an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := storageClient()
		if err != nil {
			return err
		}
		url, err := client.PresignGet(cmd.Context(), args[0], presignTTL)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	},
}

var storageUploadCmd = &cobra.Command{
	Use:   "upload <file|dir>...",
	Short: "Upload files (directories recursively) and record each one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := catalogService()
		if err != nil {
			return err
		}

		var results []services.UploadedFile
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				return err
			}
			if info.IsDir() {
				dirResults, err := catalog.UploadDir(cmd.Context(), arg)
				if err != nil {
					return err
				}
				results = append(results, dirResults...)
				continue
			}
			image, err := catalog.UploadFile(cmd.Context(), arg)
			results = append(results, services.UploadedFile{Path: arg, Image: image, Err: err})
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("%s %s: %v\n", red("✗"), r.Path, r.Err)
				continue
			}
			fmt.Printf("%s %s → %s\n", boldGreen("✓"), r.Path, r.Image.URL)
		}
		fmt.Printf("\nUploaded %s, failed %s\n", boldGreen(len(results)-failed), red(failed))
		if failed > 0 {
			return fmt.Errorf("%d uploads failed", failed)
		}
		return nil
	},
}

var storageSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Record bucket objects missing from the images table",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := catalogService()
		if err != nil {
			return err
		}
		report, err := catalog.Sync(cmd.Context())
		if err != nil {
			return err
		}

		for _, img := range report.Inserted {
			fmt.Printf("%s %s\n", boldGreen("+"), img.URL)
		}
		for key, ferr := range report.Failed {
			fmt.Printf("%s %s: %v\n", red("✗"), key, ferr)
		}
		fmt.Printf("\nListed %d, inserted %s, skipped %s, failed %s\n",
			report.Listed, boldGreen(len(report.Inserted)), yellow(report.Skipped), red(len(report.Failed)))
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d objects failed to sync", len(report.Failed))
		}
		return nil
	},
}

func catalogService() (*services.CatalogService, error) {
	client, err := storageClient()
	if err != nil {
		return nil, err
	}
	store, err := imageStore()
	if err != nil {
		return nil, err
	}
	return services.NewCatalogService(client, store), nil
}

func init() {
	storagePresignCmd.Flags().DurationVar(&presignTTL, "ttl", storage.DefaultUploadTTL, "URL lifetime")

	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageHeadCmd)
	storageCmd.AddCommand(storagePresignCmd)
	storageCmd.AddCommand(storageUploadCmd)
	storageCmd.AddCommand(storageSyncCmd)
}
