package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"quest-maker/internal/bundle"
	"quest-maker/internal/logger"
	"quest-maker/internal/serializer"

	"go.uber.org/zap"
)

var errUsage = errors.New("exactly one of -in or -extract is required")

func main() {
	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Encoding: "console", Service: logger.ServiceQuestBundle})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(os.Args[1:], os.Stderr, log); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error("questbundle failed", zap.Error(err))
		os.Exit(1)
	}
}

// run разбирает флаги и выполняет одно преобразование.
// Без -out имя файла выводится из заголовка квеста.
func run(args []string, stderr io.Writer, log *zap.Logger) error {
	fs := flag.NewFlagSet("questbundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "quest data document (JSON) to turn into a playable HTML bundle")
	extract := fs.String("extract", "", "HTML bundle to extract the quest data document from")
	out := fs.String("out", "", "output file (default: derived from the quest title)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*in == "") == (*extract == "") {
		fs.Usage()
		return errUsage
	}

	if *in != "" {
		return generate(*in, *out, log)
	}
	return extractData(*extract, *out, log)
}

func generate(inPath, outPath string, log *zap.Logger) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	meta, err := serializer.Load(data)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	doc, err := bundle.Generate(meta)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = bundle.Filename(meta.Title)
	}
	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Info("Bundle generated",
		zap.String("title", meta.Title),
		zap.Int("scenarios", meta.Scenarios.Len()),
		zap.String("out", outPath),
	)
	return nil
}

func extractData(inPath, outPath string, log *zap.Logger) error {
	doc, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	meta, err := bundle.Parse(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	data, err := serializer.Dump(meta)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = serializer.Filename(meta.Title)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Info("Quest data extracted",
		zap.String("title", meta.Title),
		zap.Int("scenarios", meta.Scenarios.Len()),
		zap.String("out", outPath),
	)
	return nil
}
