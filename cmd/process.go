package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/claimstack/docpipe/internal/model"
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process a single insurance document",
	Args:  cobra.ExactArgs(1),
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

		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		result := p.ProcessDocument(ctx, doc)
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func loadDocument(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, eris.Wrapf(err, "read %s", path)
	}
	return model.Document{
		ID:       uuid.New().String(),
		Filename: filepath.Base(path),
		MimeType: mimeTypeFor(path),
		Size:     int64(len(data)),
		Bytes:    data,
	}, nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
