package moviequiz

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultDistractors is the number of distractors requested per question
const DefaultDistractors = 3

// pcgStream is the second PCG word; the caller's seed is the first
const pcgStream = 0x9e3779b97f4a7c15

var questionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("moviequiz/question"))

// promptTemplates holds the fixed question text per kind
var promptTemplates = map[QuestionKind]string{
	KindYear:      `In which year was "%s" released?`,
	KindLeadActor: `Who starred as the main actor in "%s"?`,
	KindDirector:  `Who directed "%s"?`,
	KindGenre:     `Which best describes the genre of "%s"?`,
}

// SynthOptions tunes question synthesis
type SynthOptions struct {
	K                int            // distractors per question, defaults to DefaultDistractors
	Kinds            []QuestionKind // enabled kinds, defaults to AllKinds
	ExcludeOwnGenres bool           // keep a movie's other genres out of its genre distractors
}

// QuestionMaker turns movie records into multiple choice questions.
// It holds no mutable state, so one maker may serve concurrent calls.
type QuestionMaker struct {
	k                int
	kinds            []QuestionKind
	excludeOwnGenres bool
}

// NewQuestionMaker creates a question maker with the given options
func NewQuestionMaker(opts SynthOptions) *QuestionMaker {
	k := opts.K
	if k <= 0 {
		k = DefaultDistractors
	}

	kinds := make([]QuestionKind, 0, len(AllKinds))
	seen := make(map[QuestionKind]struct{})
	for _, kind := range opts.Kinds {
		if _, ok := promptTemplates[kind]; !ok {
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		kinds = append(kinds, AllKinds...)
	}

	return &QuestionMaker{k: k, kinds: kinds, excludeOwnGenres: opts.ExcludeOwnGenres}
}

// Generate builds up to count questions from records using the default options
func Generate(records []MovieRecord, count int, seed int64) []QuestionItem {
	return NewQuestionMaker(SynthOptions{}).Generate(records, count, seed)
}

// MaxQuestions returns an upper bound on how many questions records can
// supply: one per record and enabled kind
func (qm *QuestionMaker) MaxQuestions(records []MovieRecord) int {
	return len(records) * len(qm.kinds)
}

type candidate struct {
	record int
	kind   QuestionKind
}

// Generate builds up to count questions from records. The same records,
// count and seed always produce the same questions. Fewer than count items
// come back when the records cannot supply more; that is not an error.
func (qm *QuestionMaker) Generate(records []MovieRecord, count int, seed int64) []QuestionItem {
	items := make([]QuestionItem, 0)
	if count <= 0 || len(records) == 0 {
		return items
	}

	rng := rand.New(rand.NewPCG(uint64(seed), pcgStream))
	domains := buildDomains(records)

	// Every (record, kind) pair is visited at most once, in seeded order
	candidates := make([]candidate, 0, len(records)*len(qm.kinds))
	for i := range records {
		for _, kind := range qm.kinds {
			candidates = append(candidates, candidate{record: i, kind: kind})
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, c := range candidates {
		if len(items) >= count {
			break
		}
		item, ok := qm.buildQuestion(rng, records[c.record], c.kind, domains)
		if !ok {
			continue
		}
		item.ID = questionID(seed, len(items), item)
		items = append(items, item)
	}

	VerboseLog("Generated %d of %d requested questions from %d records", len(items), count, len(records))
	return items
}

func (qm *QuestionMaker) buildQuestion(rng *rand.Rand, record MovieRecord, kind QuestionKind, domains map[QuestionKind][]string) (QuestionItem, bool) {
	if !record.HasKind(kind) {
		return QuestionItem{}, false
	}

	exclude := make(map[string]struct{})
	var correct string
	switch kind {
	case KindYear:
		correct = strconv.Itoa(*record.Year)
	case KindLeadActor:
		correct = *record.LeadActor
	case KindDirector:
		correct = *record.Director
	case KindGenre:
		correct = record.Genres[rng.IntN(len(record.Genres))]
		if qm.excludeOwnGenres {
			for _, g := range record.Genres {
				exclude[answerKey(g)] = struct{}{}
			}
		}
	}
	exclude[answerKey(correct)] = struct{}{}

	pool := make([]string, 0, len(domains[kind]))
	for _, v := range domains[kind] {
		if _, skip := exclude[answerKey(v)]; !skip {
			pool = append(pool, v)
		}
	}
	distractors := sampleDistinct(rng, pool, qm.k)

	options := make([]string, 0, len(distractors)+1)
	options = append(options, correct)
	options = append(options, distractors...)
	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	correctIndex := 0
	for i, o := range options {
		if o == correct {
			correctIndex = i
			break
		}
	}

	return QuestionItem{
		Kind:          kind,
		Prompt:        fmt.Sprintf(promptTemplates[kind], record.Title),
		CorrectAnswer: correct,
		Distractors:   distractors,
		Options:       options,
		CorrectIndex:  correctIndex,
		SourceTitle:   record.Title,
	}, true
}

// sampleDistinct picks up to k values from pool without replacement.
// A short pool is returned whole; values are never repeated to reach k.
func sampleDistinct(rng *rand.Rand, pool []string, k int) []string {
	n := min(k, len(pool))
	picked := make([]string, 0, n)
	for _, i := range rng.Perm(len(pool))[:n] {
		picked = append(picked, pool[i])
	}
	return picked
}

// buildDomains collects the sorted distinct values of every attribute across
// the whole dataset. Values that differ only in case or surrounding space
// count once.
func buildDomains(records []MovieRecord) map[QuestionKind][]string {
	years := make(map[int]struct{})
	actors := newValueSet()
	directors := newValueSet()
	genres := newValueSet()

	for _, r := range records {
		if r.Year != nil {
			years[*r.Year] = struct{}{}
		}
		if r.LeadActor != nil {
			actors.add(*r.LeadActor)
		}
		if r.Director != nil {
			directors.add(*r.Director)
		}
		for _, g := range r.Genres {
			genres.add(g)
		}
	}

	sortedYears := make([]int, 0, len(years))
	for y := range years {
		sortedYears = append(sortedYears, y)
	}
	sort.Ints(sortedYears)
	yearValues := make([]string, len(sortedYears))
	for i, y := range sortedYears {
		yearValues[i] = strconv.Itoa(y)
	}

	return map[QuestionKind][]string{
		KindYear:      yearValues,
		KindLeadActor: actors.sorted(),
		KindDirector:  directors.sorted(),
		KindGenre:     genres.sorted(),
	}
}

// Domain returns the sorted distinct values records take for kind
func Domain(records []MovieRecord, kind QuestionKind) []string {
	return buildDomains(records)[kind]
}

type valueSet map[string]string // answer key -> canonical spelling

func newValueSet() valueSet { return make(valueSet) }

func (s valueSet) add(v string) {
	key := answerKey(v)
	if existing, ok := s[key]; !ok || v < existing {
		s[key] = v
	}
}

func (s valueSet) sorted() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// answerKey normalizes an answer for comparison
func answerKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func questionID(seed int64, n int, item QuestionItem) string {
	name := fmt.Sprintf("%d/%d/%s/%s", seed, n, item.Kind, item.SourceTitle)
	return uuid.NewSHA1(questionNamespace, []byte(name)).String()
}
