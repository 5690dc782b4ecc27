package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/claimstack/docpipe/internal/model"
)

// NativeText extracts the embedded text layer from PDFs using the pdftotext
// CLI tool. Free and fast, but useless on scanned documents.
type NativeText struct {
	binPath string
}

// NewNativeText creates a NativeText engine. If binPath is empty,
// "pdftotext" is used.
func NewNativeText(binPath string) *NativeText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &NativeText{binPath: binPath}
}

func (n *NativeText) Name() model.Method { return model.MethodNativeText }

// Extract writes the document bytes to a temp file and runs
// pdftotext -layout on it. Confidence is left at zero; the text layer has no
// self-reported accuracy, so the quality evaluator scores it.
func (n *NativeText) Extract(ctx context.Context, doc model.Document) (*Extraction, error) {
	tmp, err := os.CreateTemp("", "docpipe-*"+filepath.Ext(doc.Filename))
	if err != nil {
		return nil, eris.Wrap(err, "engine: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc.Bytes); err != nil {
		tmp.Close()
		return nil, eris.Wrapf(err, "engine: write temp file for %s", doc.Filename)
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "engine: close temp file")
	}

	cmd := exec.CommandContext(ctx, n.binPath, "-layout", tmp.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "engine: pdftotext failed for %s: %s", doc.Filename, stderr.String())
	}

	text := stdout.String()
	return &Extraction{
		Text:  text,
		Pages: countPageBreaks(text),
	}, nil
}

// countPageBreaks estimates the page count from form-feed separators.
func countPageBreaks(text string) int {
	return strings.Count(text, "\f") + 1
}
