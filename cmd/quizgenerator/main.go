package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"moviequiz"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "Config file (default: moviequiz.yaml if present)")
		source      = pflag.String("source", "", "Dataset path, URL, or - for stdin")
		count       = pflag.Int("count", moviequiz.DefaultCount, "Number of questions to generate")
		seed        = pflag.Int64("seed", moviequiz.DefaultSeed, "Random seed")
		distractors = pflag.Int("distractors", moviequiz.DefaultDistractors, "Distractors per question")
		kinds       = pflag.StringSlice("kinds", nil, "Question kinds: year, lead_actor, director, genre")
		outputFile  = pflag.String("output", "", "Output file, .csv or .json (default: JSON on stdout)")
		dbPath      = pflag.String("db", "", "SQLite database to store the quiz in")
		review      = pflag.Bool("review", false, "Review questions with an LLM (needs OPENAI_API_KEY)")
		verbose     = pflag.Bool("verbose", false, "Enable verbose debugging output")
	)
	pflag.Parse()

	moviequiz.SetVerbose(*verbose)

	if *source == "" && pflag.NArg() > 0 {
		*source = pflag.Arg(0)
		pflag.CommandLine.Lookup("source").Changed = true
	}

	changed := pflag.CommandLine.Changed
	cfg, err := moviequiz.LoadConfig(*configPath, moviequiz.Overrides{
		Source: *source, SourceSet: changed("source"),
		Count: *count, CountSet: changed("count"),
		Seed: *seed, SeedSet: changed("seed"),
		Distractors: *distractors, DistractorsSet: changed("distractors"),
		Kinds: *kinds, KindsSet: changed("kinds"),
		Output: *outputFile, OutputSet: changed("output"),
		DB: *dbPath, DBSet: changed("db"),
		Review: *review, ReviewSet: changed("review"),
	})
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Source == "" {
		log.Fatal("A dataset is required. Use --source or set source in the config file.")
	}
	if cfg.LogDir == "" && moviequiz.Verbose() {
		cfg.LogDir = moviequiz.DefaultLogDir
	}

	var opts []moviequiz.GeneratorOption
	if cfg.DB != "" {
		db, err := moviequiz.OpenDB(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.CloseDB()
		if err := db.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		opts = append(opts, moviequiz.WithDB(db))
	}

	generator := moviequiz.NewQuizGenerator(cfg, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	quiz, err := generator.GenerateQuiz(ctx, moviequiz.GenerationRequest{
		Source: cfg.Source,
		Count:  cfg.Count,
		Seed:   cfg.Seed,
	})
	if err != nil {
		log.Fatalf("Failed to generate quiz: %v", err)
	}

	if err := writeQuiz(cfg.Output, quiz); err != nil {
		log.Fatalf("Failed to write quiz: %v", err)
	}

	printSummary(quiz, cfg)
}

// writeQuiz writes CSV when path ends in .csv, JSON otherwise, and JSON to
// stdout when path is empty
func writeQuiz(path string, quiz *moviequiz.Quiz) error {
	if path == "" {
		return moviequiz.WriteJSON(os.Stdout, quiz)
	}

	var buf bytes.Buffer
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = moviequiz.WriteCSV(&buf, quiz.Questions)
	} else {
		err = moviequiz.WriteJSON(&buf, quiz)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Printf("Quiz saved to: %s", path)
	return nil
}

// printSummary reports the run on stderr so stdout stays clean for JSON
func printSummary(quiz *moviequiz.Quiz, cfg moviequiz.Config) {
	out := color.Error
	bold := color.New(color.Bold)
	bold.Fprintf(out, "Quiz %s\n", quiz.ID)
	fmt.Fprintf(out, "  source:    %s\n", quiz.Source)
	fmt.Fprintf(out, "  seed:      %d\n", quiz.Seed)
	fmt.Fprintf(out, "  records:   %d\n", quiz.Records)

	questions := fmt.Sprintf("%d/%d", len(quiz.Questions), quiz.Requested)
	if len(quiz.Questions) < quiz.Requested {
		fmt.Fprintf(out, "  questions: %s\n", color.YellowString(questions))
	} else {
		fmt.Fprintf(out, "  questions: %s\n", color.GreenString(questions))
	}
	if quiz.SkippedRows > 0 {
		fmt.Fprintf(out, "  skipped:   %s\n", color.YellowString("%d rows", quiz.SkippedRows))
	}
	if quiz.Duplicates > 0 {
		fmt.Fprintf(out, "  dropped:   %d duplicates\n", quiz.Duplicates)
	}
	if quiz.Rejected > 0 {
		fmt.Fprintf(out, "  rejected:  %s\n", color.RedString("%d by review", quiz.Rejected))
	}
	if cfg.DB != "" {
		fmt.Fprintf(out, "  stored in: %s\n", cfg.DB)
	}
}
