package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tiendata/ordercast/internal/config"
	"github.com/tiendata/ordercast/internal/estimator/artifact"
	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/evaluate"
	"github.com/tiendata/ordercast/internal/estimator/export"
	"github.com/tiendata/ordercast/internal/estimator/predict"
	"github.com/tiendata/ordercast/internal/estimator/train"
	"github.com/tiendata/ordercast/pkg/logger"
)

const usage = `usage: ordercast <command> [flags]

commands:
  train     fit and publish a model set from a training CSV
  evaluate  run cross-validation diagnostics without publishing
  predict   score a batch CSV against the published model set

run "ordercast <command> -h" for command flags
`

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(cmd, args); err != nil {
		log.Fatalf("ordercast %s: %v", cmd, err)
	}
}

func run(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	artifactsDir := fs.String("artifacts", "", "artifact directory (overrides config)")

	var (
		csvPath   = fs.String("data", "", "input CSV path")
		force     = fs.Bool("force", false, "retrain even if the data is unchanged")
		skipSweep = fs.Bool("skip-sweep", false, "skip the hyperparameter sweep")
		output    = fs.String("output", "", "prediction output CSV (default stdout)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *artifactsDir != "" {
		cfg.Artifacts.Dir = *artifactsDir
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := artifact.NewStore(cfg.Artifacts.Dir, sugar)

	switch cmd {
	case "train":
		return runTrain(ctx, store, sugar, cfg, *csvPath, *force, *skipSweep)
	case "evaluate":
		return runEvaluate(ctx, store, sugar, cfg, *csvPath)
	case "predict":
		return runPredict(store, sugar, *csvPath, *output)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func trainOptions(cfg *config.Config, csvPath string, force, skipSweep bool) train.Options {
	return train.Options{
		CSVPath:   csvPath,
		Force:     force,
		SkipSweep: skipSweep,
		CV: evaluate.CVOptions{
			Splits:  cfg.Training.CVSplits,
			Repeats: cfg.Training.CVRepeats,
			Seed:    cfg.Training.Seed,
		},
	}
}

func runTrain(ctx context.Context, store *artifact.Store, sugar *zap.SugaredLogger, cfg *config.Config, csvPath string, force, skipSweep bool) error {
	if csvPath == "" {
		return fmt.Errorf("-data is required")
	}
	report, err := train.New(store, sugar).Run(ctx, trainOptions(cfg, csvPath, force, skipSweep))
	if err != nil {
		return err
	}
	if report.Skipped {
		fmt.Println("training skipped: data unchanged (use -force to retrain)")
		return nil
	}
	fmt.Printf("trained run %s on %d rows\n", report.RunID, report.NumRows)
	if report.CV != nil {
		fmt.Printf("cv wape %.3f (baseline %.3f)\n",
			report.CV.Metrics["wape"].Mean, report.CV.BaselineNaiveMedianWAPE)
	}
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func runEvaluate(ctx context.Context, store *artifact.Store, sugar *zap.SugaredLogger, cfg *config.Config, csvPath string) error {
	if csvPath == "" {
		return fmt.Errorf("-data is required")
	}
	report, err := train.New(store, sugar).Evaluate(ctx, trainOptions(cfg, csvPath, false, true))
	if err != nil {
		return err
	}
	fmt.Printf("evaluated %d rows over %d folds\n", report.NumRows, report.CV.NumFolds)
	for name, m := range report.CV.Metrics {
		fmt.Printf("  %-10s %.4f ± %.4f\n", name, m.Mean, m.Std)
	}
	fmt.Printf("  baseline wape %.4f\n", report.CV.BaselineNaiveMedianWAPE)
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func runPredict(store *artifact.Store, sugar *zap.SugaredLogger, csvPath, output string) error {
	if csvPath == "" {
		return fmt.Errorf("-data is required")
	}
	predictor, err := predict.Load(store, sugar)
	if err != nil {
		return err
	}
	rows, err := dataset.ReadCSV(csvPath)
	if err != nil {
		return err
	}
	batch, err := predictor.PredictBatch(rows)
	if err != nil {
		return err
	}
	for _, w := range batch.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if output == "" {
		return export.WriteCSV(os.Stdout, batch)
	}
	if err := export.WriteCSVFile(output, batch); err != nil {
		return err
	}
	fmt.Printf("wrote %d predictions to %s\n", len(batch.Predictions), output)
	return nil
}
