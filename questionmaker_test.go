package moviequiz

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func movie(title string, year int, director, actor string, genres ...string) MovieRecord {
	r := MovieRecord{Title: title, Genres: genres}
	if r.Genres == nil {
		r.Genres = []string{}
	}
	if year != 0 {
		r.Year = ptr(year)
	}
	if director != "" {
		r.Director = ptr(director)
	}
	if actor != "" {
		r.LeadActor = ptr(actor)
	}
	return r
}

func testRecords() []MovieRecord {
	return []MovieRecord{
		movie("Matrix", 1999, "Wachowski", "Reeves", "Action", "SciFi"),
		movie("Up", 2009, "Docter", "Asner", "Animation"),
		movie("Heat", 1995, "Mann", "Pacino", "Crime", "Drama"),
		movie("Alien", 1979, "Scott", "Weaver", "Horror", "SciFi"),
		movie("Fargo", 1996, "Coen", "McDormand", "Crime", "Comedy"),
		movie("Solaris", 1972, "Tarkovsky", "Banionis", "Drama"),
		movie("Jaws", 1975, "Spielberg", "Scheider", "Thriller"),
	}
}

func TestGenerateYearFromTwoMovies(t *testing.T) {
	records := []MovieRecord{
		movie("Matrix", 1999, "Wachowski", "Reeves", "Action", "SciFi"),
		movie("Up", 2009, "Docter", "Asner", "Animation"),
	}
	records[0].Rating = ptr(8.7)
	records[1].Rating = ptr(8.3)

	qm := NewQuestionMaker(SynthOptions{K: 3, Kinds: []QuestionKind{KindYear}})
	items := qm.Generate(records, 10, 1)
	require.Len(t, items, 2)

	var matrix *QuestionItem
	for i := range items {
		if items[i].SourceTitle == "Matrix" {
			matrix = &items[i]
		}
	}
	require.NotNil(t, matrix)
	assert.Equal(t, KindYear, matrix.Kind)
	assert.Equal(t, `In which year was "Matrix" released?`, matrix.Prompt)
	assert.Equal(t, "1999", matrix.CorrectAnswer)
	assert.Equal(t, []string{"2009"}, matrix.Distractors)
	assert.ElementsMatch(t, []string{"1999", "2009"}, matrix.Options)
	assert.Equal(t, "1999", matrix.Options[matrix.CorrectIndex])
}

func TestGenerateEmptyInput(t *testing.T) {
	items := Generate(nil, 10, 1)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	assert.Empty(t, Generate(testRecords(), 0, 1))
}

func TestGenerateDeterministic(t *testing.T) {
	records := testRecords()
	a := Generate(records, 12, 42)
	b := Generate(records, 12, 42)
	assert.Equal(t, a, b)

	c := Generate(records, 12, 43)
	assert.NotEqual(t, a, c)
}

func TestGeneratePrefixStable(t *testing.T) {
	records := testRecords()
	long := Generate(records, 20, 7)
	short := Generate(records, 5, 7)
	require.Len(t, short, 5)
	assert.Equal(t, long[:5], short)
}

func TestGenerateQuestionShape(t *testing.T) {
	records := testRecords()
	for seed := int64(0); seed < 25; seed++ {
		qm := NewQuestionMaker(SynthOptions{K: 3})
		items := qm.Generate(records, 100, seed)
		require.Len(t, items, qm.MaxQuestions(records), "every record has every attribute")

		ids := make(map[string]struct{})
		for _, item := range items {
			_, dup := ids[item.ID]
			assert.False(t, dup, "duplicate id %s", item.ID)
			ids[item.ID] = struct{}{}

			// correct answer never among distractors, distractors distinct
			seen := map[string]struct{}{answerKey(item.CorrectAnswer): {}}
			for _, d := range item.Distractors {
				_, clash := seen[answerKey(d)]
				assert.False(t, clash, "seed %d: %q repeats in %+v", seed, d, item)
				seen[answerKey(d)] = struct{}{}
			}

			pool := len(Domain(records, item.Kind)) - 1
			assert.Len(t, item.Distractors, min(3, pool))

			require.Len(t, item.Options, len(item.Distractors)+1)
			assert.Equal(t, item.CorrectAnswer, item.Options[item.CorrectIndex])
			assert.ElementsMatch(t, append([]string{item.CorrectAnswer}, item.Distractors...), item.Options)
		}
	}
}

func TestGenerateAnswersComeFromRecord(t *testing.T) {
	records := testRecords()
	byTitle := make(map[string]MovieRecord)
	for _, r := range records {
		byTitle[r.Title] = r
	}

	for _, item := range Generate(records, 28, 3) {
		r := byTitle[item.SourceTitle]
		switch item.Kind {
		case KindYear:
			assert.Equal(t, strconv.Itoa(*r.Year), item.CorrectAnswer)
		case KindDirector:
			assert.Equal(t, *r.Director, item.CorrectAnswer)
			assert.Equal(t, fmt.Sprintf("Who directed %q?", r.Title), item.Prompt)
		case KindLeadActor:
			assert.Equal(t, *r.LeadActor, item.CorrectAnswer)
		case KindGenre:
			assert.Contains(t, r.Genres, item.CorrectAnswer)
		}
	}
}

func TestGenerateSkipsAbsentAttributes(t *testing.T) {
	records := []MovieRecord{
		movie("Matrix", 1999, "", "Reeves"),
		movie("Up", 0, "Docter", ""),
		movie("Heat", 1995, "Mann", "Pacino"),
	}

	items := Generate(records, 100, 11)
	for _, item := range items {
		switch item.SourceTitle {
		case "Matrix":
			assert.NotEqual(t, KindDirector, item.Kind)
			assert.NotEqual(t, KindGenre, item.Kind)
		case "Up":
			assert.NotEqual(t, KindYear, item.Kind)
			assert.NotEqual(t, KindLeadActor, item.Kind)
			assert.NotEqual(t, KindGenre, item.Kind)
		}
	}
	// Matrix: year, actor. Up: director. Heat: year, director, actor.
	assert.Len(t, items, 6)
}

func TestGenerateSingleValueDomain(t *testing.T) {
	records := []MovieRecord{
		movie("Matrix", 1999, "", ""),
		movie("Matrix Reloaded", 1999, "", ""),
	}
	items := Generate(records, 10, 5)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Empty(t, item.Distractors)
		assert.Equal(t, []string{"1999"}, item.Options)
		assert.Equal(t, 0, item.CorrectIndex)
	}
}

func TestGenerateCaseInsensitiveDistractors(t *testing.T) {
	records := []MovieRecord{
		movie("A", 0, "", "", "drama"),
		movie("B", 0, "", "", "Drama"),
		movie("C", 0, "", "", "Comedy"),
	}
	assert.Equal(t, []string{"Comedy", "Drama"}, Domain(records, KindGenre))

	for _, item := range Generate(records, 10, 2) {
		if item.SourceTitle == "A" {
			assert.Equal(t, []string{"Comedy"}, item.Distractors)
		}
	}
}

func TestGenerateExcludeOwnGenres(t *testing.T) {
	records := []MovieRecord{
		movie("Matrix", 0, "", "", "Action", "SciFi"),
		movie("Up", 0, "", "", "Animation"),
		movie("Heat", 0, "", "", "Crime"),
	}
	qm := NewQuestionMaker(SynthOptions{K: 5, ExcludeOwnGenres: true})
	for seed := int64(0); seed < 10; seed++ {
		for _, item := range qm.Generate(records, 10, seed) {
			if item.SourceTitle == "Matrix" {
				assert.ElementsMatch(t, []string{"Animation", "Crime"}, item.Distractors)
			}
		}
	}
}

func TestNewQuestionMakerDefaults(t *testing.T) {
	qm := NewQuestionMaker(SynthOptions{Kinds: []QuestionKind{"bogus", KindGenre, KindGenre}})
	assert.Equal(t, DefaultDistractors, qm.k)
	assert.Equal(t, []QuestionKind{KindGenre}, qm.kinds)

	qm = NewQuestionMaker(SynthOptions{})
	assert.Equal(t, AllKinds, qm.kinds)
}

func TestParseQuestionKind(t *testing.T) {
	kind, err := ParseQuestionKind(" Main_Actor ")
	require.NoError(t, err)
	assert.Equal(t, KindLeadActor, kind)

	_, err = ParseQuestionKind("budget")
	assert.Error(t, err)
}
