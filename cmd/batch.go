package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/claimstack/docpipe/internal/model"
)

var documentExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir|files...>",
	Short: "Process a batch of documents belonging to one claim",
	Long:  "Processes every document concurrently, consolidates identifiers across the batch, and infers the claim workflow stage.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, _, err := buildPipeline(ctx, st)
		if err != nil {
			return err
		}

		paths, err := collectPaths(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.New("no documents found")
		}

		docs := make([]model.Document, 0, len(paths))
		for _, path := range paths {
			doc, err := loadDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}

		result := p.ProcessBatch(ctx, docs)
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// collectPaths expands a single directory argument into its document files,
// or validates an explicit file list. Sorted for a stable processing order.
func collectPaths(args []string) ([]string, error) {
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", args[0])
		}
		if info.IsDir() {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return nil, eris.Wrapf(err, "read dir %s", args[0])
			}
			var paths []string
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if documentExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
					paths = append(paths, filepath.Join(args[0], e.Name()))
				}
			}
			sort.Strings(paths)
			return paths, nil
		}
	}

	paths := append([]string(nil), args...)
	sort.Strings(paths)
	return paths, nil
}
