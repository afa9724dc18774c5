/*
File: main.go
Version: 1.0.0
Description: Command line entry point: train, predict, batch and serve subcommands.
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	yellow = color.New(color.FgYellow)
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: phishguard [-config FILE] <command> [flags]

Commands:
  train                       train, evaluate and save the model
  predict [-url URL]          classify one URL (prompts when -url is omitted)
  batch -in FILE -out FILE    classify one URL per line into a CSV file
  serve [-listen ADDR]        run the HTTP prediction service

Global flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		red.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := InitLogger(cfg.Logging); err != nil {
		red.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "train":
		err = runTrain(ctx, cfg, args)
	case "predict":
		err = runPredict(cfg, args, os.Stdin, os.Stdout)
	case "batch":
		err = runBatch(ctx, cfg, args)
	case "serve":
		err = runServe(ctx, cfg, args)
	default:
		usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	stop()
	ShutdownLogger()
	if err != nil {
		red.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func runTrain(ctx context.Context, cfg *Config, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	dataset := fs.String("dataset", cfg.Paths.Dataset, "Dataset CSV")
	topK := fs.Int("k", cfg.Training.TopK, "Number of features to select")
	workers := fs.Int("workers", cfg.Training.Workers, "Concurrent fits (0 = NumCPU)")
	fs.Parse(args)

	cfg.Paths.Dataset = *dataset
	cfg.Training.TopK = *topK
	cfg.Training.Workers = *workers
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := NewTrainer(cfg).Run(ctx)
	if err != nil {
		return err
	}

	green.Printf("Model Accuracy: %.2f\n", res.Report.Accuracy)
	cyan.Println("Classification Report:")
	fmt.Println(res.Report.String())
	fmt.Printf("Cross-validation scores: %s\n", formatScores(res.Artifact.CVScores))
	fmt.Printf("Best params: %s (CV accuracy %.4f)\n", res.Artifact.Params, res.Search.BestScore())
	fmt.Printf("Model saved to %s, selected features saved to %s\n", res.ModelPath, res.FeaturesPath)
	if res.ReportPath != "" {
		fmt.Printf("Training report: %s\n", res.ReportPath)
	}
	yellow.Printf("Finished in %v\n", res.Elapsed.Round(time.Millisecond))
	return nil
}

func formatScores(scores []float64) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.8f", s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func runPredict(cfg *Config, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	url := fs.String("url", "", "URL to classify")
	fs.Parse(args)

	if *url == "" {
		fmt.Fprint(out, "Enter the URL to classify: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*url = strings.TrimRight(line, "\r\n")
	}

	p, err := NewPredictor(cfg)
	if err != nil {
		return err
	}
	pred, err := p.Predict(*url)
	if err != nil {
		return err
	}

	label := green.Sprint(pred.Label)
	if pred.Phishing {
		label = red.Sprint(pred.Label)
	}
	fmt.Fprintf(out, "Prediction for URL '%s': %s\n", pred.URL, label)
	return nil
}

func runBatch(ctx context.Context, cfg *Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inPath := fs.String("in", "", "File with one URL per line")
	outPath := fs.String("out", "predictions.csv", "CSV output file")
	fs.Parse(args)

	if *inPath == "" {
		fs.Usage()
		return errors.New("-in is required")
	}

	urls, err := ReadURLsFromFile(*inPath)
	if err != nil {
		return err
	}
	p, err := NewPredictor(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := p.PredictBatch(ctx, urls)
	if err != nil {
		return err
	}

	w, err := NewCSVWriter(*outPath)
	if err != nil {
		return err
	}
	if err := w.WriteResults(results); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	var phishing, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Prediction.Phishing:
			phishing++
		}
	}
	green.Printf("Classified %d URLs in %v -> %s\n", len(results), time.Since(start).Round(time.Millisecond), *outPath)
	red.Printf("  phishing: %d\n", phishing)
	if failed > 0 {
		yellow.Printf("  failed:   %d\n", failed)
	}
	return nil
}

func runServe(ctx context.Context, cfg *Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", cfg.Server.ListenAddr, "Listen address")
	fs.Parse(args)
	cfg.Server.ListenAddr = *listen

	p, err := NewPredictor(cfg)
	if err != nil {
		return err
	}
	srv, err := NewServer(cfg, p)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
