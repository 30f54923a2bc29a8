package moviequiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// QuizGenerator orchestrates loading, question synthesis, deduplication,
// optional review and persistence
type QuizGenerator struct {
	cfg     Config
	maker   *QuestionMaker
	checker *QuestionChecker
	db      *DB
	fetch   FetchOptions
}

// GeneratorOption customizes a QuizGenerator
type GeneratorOption func(*QuizGenerator)

// WithChecker sets the reviewer, overriding the one built from the config
func WithChecker(checker *QuestionChecker) GeneratorOption {
	return func(qg *QuizGenerator) { qg.checker = checker }
}

// WithDB makes the generator store every quiz it produces
func WithDB(db *DB) GeneratorOption {
	return func(qg *QuizGenerator) { qg.db = db }
}

// WithHTTPClient sets the client used for remote datasets
func WithHTTPClient(client *http.Client) GeneratorOption {
	return func(qg *QuizGenerator) { qg.fetch.Client = client }
}

// NewQuizGenerator creates a new quiz generator
func NewQuizGenerator(cfg Config, opts ...GeneratorOption) *QuizGenerator {
	qg := &QuizGenerator{
		cfg:   cfg,
		maker: NewQuestionMaker(cfg.Synth),
		fetch: FetchOptions{
			Timeout:   cfg.FetchTimeout,
			RetryMax:  defaultFetchRetries,
			Delimiter: cfg.Loader.Delimiter,
		},
	}
	if cfg.Review.Enabled && cfg.APIKey != "" {
		qg.checker = NewQuestionChecker(cfg.APIKey, cfg.Review.BaseURL, cfg.Review.Model)
	}
	for _, opt := range opts {
		opt(qg)
	}
	return qg
}

// LoadRecords opens source and loads its records
func (qg *QuizGenerator) LoadRecords(ctx context.Context, source string) (*LoadResult, error) {
	rc, err := OpenSource(ctx, source, qg.fetch)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	result, err := Load(rc, qg.cfg.Loader)
	if err != nil {
		var dsErr *DataSourceError
		if errors.As(err, &dsErr) && dsErr.Source == "" {
			dsErr.Source = source
		}
		return nil, err
	}
	return result, nil
}

// GenerateQuiz loads the requested source and builds a quiz of at most
// req.Count questions. An empty Source or non-positive Count falls back to
// the configured value.
func (qg *QuizGenerator) GenerateQuiz(ctx context.Context, req GenerationRequest) (*Quiz, error) {
	if req.Source == "" {
		req.Source = qg.cfg.Source
	}
	if req.Count <= 0 {
		req.Count = qg.cfg.Count
	}

	quiz := &Quiz{
		ID:        uuid.NewString(),
		Source:    req.Source,
		Seed:      req.Seed,
		Requested: req.Count,
		Questions: []QuestionItem{},
		CreatedAt: time.Now().UTC(),
	}
	log.Printf("Starting quiz generation from %s, target questions: %d, seed: %d", req.Source, req.Count, req.Seed)

	var logger *RunLogger
	if qg.cfg.LogDir != "" {
		l, err := NewRunLogger(qg.cfg.LogDir, quiz.ID, req)
		if err != nil {
			// Continue without the run log rather than failing
			log.Printf("Failed to create logger for quiz %s: %v", quiz.ID, err)
		} else {
			logger = l
			defer logger.Close()
		}
	}

	result, err := qg.LoadRecords(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	quiz.Records = len(result.Records)
	quiz.SkippedRows = len(result.Skipped)
	if logger != nil {
		logger.LogLoad(result)
	}
	if len(result.Skipped) > 0 {
		log.Printf("Skipped %d malformed rows", len(result.Skipped))
	}

	// Candidates come in seeded order; any prefix equals a smaller request
	candidates := qg.maker.Generate(result.Records, qg.maker.MaxQuestions(result.Records), req.Seed)
	dedup := NewQuestionDedup()
	pool := NewQuestionPool()

	for i := range candidates {
		if len(quiz.Questions) >= req.Count {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("quiz generation interrupted: %w", err)
		}
		item := &candidates[i]

		if qg.cfg.Dedup {
			res := dedup.CheckDuplicate(item)
			if logger != nil {
				logger.LogDedupResult(item.ID, res)
			}
			if res.IsDuplicate {
				quiz.Duplicates++
				continue
			}
		}

		if qg.checker == nil {
			quiz.Questions = append(quiz.Questions, *item)
			continue
		}

		pool.Add(item)
		processed := qg.processPool(ctx, pool, logger)
		quiz.Rejected += len(processed.rejected)
		for _, q := range processed.accepted {
			quiz.Questions = append(quiz.Questions, *q)
		}
	}

	if qg.db != nil {
		if err := qg.db.SaveQuiz(quiz); err != nil {
			return nil, fmt.Errorf("failed to store quiz: %w", err)
		}
	}

	log.Printf("Quiz generation complete: %d questions (%d duplicates, %d rejected) from %d records",
		len(quiz.Questions), quiz.Duplicates, quiz.Rejected, quiz.Records)
	return quiz, nil
}

// processResult holds the results of processing questions from the pool
type processResult struct {
	accepted []*QuestionItem
	rejected []*QuestionItem
}

// processPool reviews every question currently in the pool. A failed review
// is retried once; after that the question is kept, as the reviewer is
// advisory.
func (qg *QuizGenerator) processPool(ctx context.Context, pool *QuestionPool, logger *RunLogger) processResult {
	result := processResult{}

	for {
		question, attempts, ok := pool.Next()
		if !ok {
			break
		}

		validation, err := qg.checker.CheckQuestion(ctx, question, logger)
		if err != nil {
			log.Printf("Error checking question %s: %v", question.ID, err)
			if ctx.Err() == nil && pool.Retry(question, attempts) {
				continue
			}
			if logger != nil {
				logger.LogQuestionResult(question.ID, string(ActionAccept), "review failed: "+err.Error())
			}
			result.accepted = append(result.accepted, question)
			continue
		}

		switch validation.Action {
		case ActionReject:
			result.rejected = append(result.rejected, question)
		default:
			result.accepted = append(result.accepted, question)
		}
	}

	return result
}
