// Command importer runs the detection and parsing engine against one export
// file and prints the ParseResult as JSON. It is the reference caller: file
// I/O happens here, never inside the core.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/FACorreiaa/broker-import/internal/domain/ingest/parser"
	"github.com/FACorreiaa/broker-import/internal/domain/ingest/service"
	"github.com/FACorreiaa/broker-import/pkg/config"
)

func main() {
	var pretty bool
	flag.BoolVar(&pretty, "pretty", true, "indent the JSON output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: importer [flags] <export-file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := config.Load()
	logger := newLogger(cfg.Log)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("cannot read input", slog.String("path", path), slog.Any("err", err))
		os.Exit(2)
	}

	svc := service.New(logger, service.WithMaxBytes(cfg.Import.MaxFileBytes))
	in := service.RawInput{
		Name:      filepath.Base(path),
		MediaType: mime.TypeByExtension(filepath.Ext(path)),
		Size:      int64(len(data)),
		Content:   data,
	}

	result, err := svc.Import(context.Background(), in)
	switch {
	case errors.Is(err, parser.ErrFatalInput):
		// The result still carries the explanatory warning; print it and
		// signal failure through the exit code.
		printResult(result, pretty)
		os.Exit(1)
	case err != nil:
		logger.Error("import failed", slog.Any("err", err))
		os.Exit(1)
	}

	printResult(result, pretty)
}

func printResult(result *parser.Result, pretty bool) {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
