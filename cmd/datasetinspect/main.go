package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"moviequiz"
)

func main() {
	var (
		configPath = pflag.String("config", "", "Config file (default: moviequiz.yaml if present)")
		source     = pflag.String("source", "", "Dataset path, URL, or - for stdin")
		dbPath     = pflag.String("db", "", "Also list quizzes stored in this database")
		showRows   = pflag.Int("show-skipped", 10, "Number of skipped rows to print")
		verbose    = pflag.Bool("verbose", false, "Enable verbose output")
	)
	pflag.Parse()

	moviequiz.SetVerbose(*verbose)

	if *source == "" && pflag.NArg() > 0 {
		*source = pflag.Arg(0)
		pflag.CommandLine.Lookup("source").Changed = true
	}

	cfg, err := moviequiz.LoadConfig(*configPath, moviequiz.Overrides{
		Source:    *source,
		SourceSet: pflag.CommandLine.Changed("source"),
	})
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Source == "" {
		log.Fatal("A dataset is required. Use --source or set source in the config file.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	generator := moviequiz.NewQuizGenerator(cfg)
	result, err := generator.LoadRecords(ctx, cfg.Source)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	printLoadReport(cfg.Source, result, *showRows)
	printKindReport(result.Records, cfg.Synth.K)

	if *dbPath != "" {
		printStoredQuizzes(*dbPath)
	}
}

func printLoadReport(source string, result *moviequiz.LoadResult, showRows int) {
	bold := color.New(color.Bold)
	bold.Printf("Dataset %s\n", source)
	fmt.Printf("  header:  %s\n", strings.Join(result.Header, ", "))
	fmt.Printf("  records: %s\n", color.GreenString("%d", len(result.Records)))
	if result.Fallback {
		fmt.Printf("  parser:  %s\n", color.YellowString("permissive fallback"))
	} else {
		fmt.Printf("  parser:  strict\n")
	}

	if len(result.Skipped) == 0 {
		fmt.Printf("  skipped: 0\n\n")
		return
	}
	fmt.Printf("  skipped: %s\n", color.YellowString("%d", len(result.Skipped)))
	for i, row := range result.Skipped {
		if i >= showRows {
			fmt.Printf("    ... %d more\n", len(result.Skipped)-showRows)
			break
		}
		fmt.Printf("    line %d (%d columns): %s\n", row.Line, row.Columns, row.Reason)
	}
	fmt.Println()
}

// printKindReport shows, per question kind, how many records can be asked
// about and how many distinct values are available as distractors
func printKindReport(records []moviequiz.MovieRecord, k int) {
	color.New(color.Bold).Println("Question kinds")
	for _, kind := range moviequiz.AllKinds {
		usable := 0
		for _, r := range records {
			if r.HasKind(kind) {
				usable++
			}
		}
		domain := moviequiz.Domain(records, kind)

		status := color.GreenString("ok")
		switch {
		case usable == 0:
			status = color.RedString("no data")
		case len(domain)-1 < k:
			status = color.YellowString("fewer than %d distractors", k)
		}
		fmt.Printf("  %-10s %5d records  %5d distinct values  missing %5d  %s\n",
			kind, usable, len(domain), len(records)-usable, status)
	}
	fmt.Println()
}

func printStoredQuizzes(dbPath string) {
	db, err := moviequiz.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()
	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	quizzes, err := db.GetQuizzes(20)
	if err != nil {
		log.Fatalf("Failed to get stored quizzes: %v", err)
	}

	color.New(color.Bold).Printf("Stored quizzes (%d shown)\n", len(quizzes))
	for _, q := range quizzes {
		fmt.Printf("  %s  %s  seed=%d  %d/%d questions  %s\n",
			q.ID, q.CreatedAt.Format(time.RFC3339), q.Seed, q.NumQuestions, q.Requested, q.Source)
	}
}
