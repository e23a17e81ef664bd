package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-buddy/internal/extraction"
	"github.com/zombor/receipt-buddy/internal/scanning"
)

func main() {
	fs := ff.NewFlagSet("receipt-extract")
	var (
		ocr         = fs.BoolLong("ocr", "Treat the input as an image or PDF and read it with Tesseract")
		langs       = fs.StringLong("tesseract-langs", "eng", "Comma-separated Tesseract languages for --ocr")
		totalLabels = fs.StringLong("total-labels", "", "Extra comma-separated labels that mark the total")
		verbose     = fs.BoolLong("verbose", "Log extraction details to stderr")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_EXTRACT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(fs.GetArgs(), *ocr, *langs, *totalLabels, os.Stdin, os.Stdout); err != nil {
		slog.Error("Extraction failed", "error", err)
		os.Exit(1)
	}
}

// run reads the file named in args, or stdin, and writes the extracted
// record as JSON.
func run(args []string, ocr bool, langs, totalLabels string, stdin io.Reader, stdout io.Writer) error {
	var (
		data []byte
		err  error
	)
	switch len(args) {
	case 0:
		data, err = io.ReadAll(stdin)
	case 1:
		data, err = os.ReadFile(args[0])
	default:
		return fmt.Errorf("expected at most one input file, got %d", len(args))
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	table := extraction.DefaultTable()
	for _, label := range strings.Split(totalLabels, ",") {
		if label = strings.TrimSpace(label); label != "" {
			table.Total.Labels = append(table.Total.Labels, label)
		}
	}
	engine, err := extraction.Compile(table)
	if err != nil {
		return fmt.Errorf("building extraction rules: %w", err)
	}

	var lines []string
	if ocr {
		tesseract := scanning.NewTesseract(strings.Split(langs, ",")...)
		defer tesseract.Close()
		lines, err = tesseract.Recognize(data, http.DetectContentType(data))
		if err != nil {
			return err
		}
	} else {
		text := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
		lines = strings.Split(text, "\n")
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(engine.Extract(lines))
}
