package moviequiz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moviequiz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig("", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DefaultCount, cfg.Count)
	assert.Equal(t, int64(DefaultSeed), cfg.Seed)
	assert.Equal(t, DefaultDistractors, cfg.Synth.K)
	assert.Equal(t, AllKinds, cfg.Synth.Kinds)
	assert.Equal(t, ',', cfg.Loader.Delimiter)
	assert.True(t, cfg.Dedup)
	assert.False(t, cfg.Review.Enabled)
	assert.Equal(t, defaultFetchTimeout, cfg.FetchTimeout)
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
source: movies.csv
count: 5
seed: 7
distractors: 2
kinds: [year, director]
delimiter: tab
synonyms:
  naslov: title
dedup: false
output: quiz.csv
log_dir: logs
fetch_timeout: 5s
`)

	cfg, err := LoadConfig(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "movies.csv", cfg.Source)
	assert.Equal(t, 5, cfg.Count)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.Synth.K)
	assert.Equal(t, []QuestionKind{KindYear, KindDirector}, cfg.Synth.Kinds)
	assert.Equal(t, '\t', cfg.Loader.Delimiter)
	assert.Equal(t, map[string]string{"naslov": ColumnTitle}, cfg.Loader.Synonyms)
	assert.False(t, cfg.Dedup)
	assert.Equal(t, "quiz.csv", cfg.Output)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)

	cfg, err = LoadConfig(path, Overrides{
		Source: "other.csv", SourceSet: true,
		Count: 9, CountSet: true,
		Seed: 0, SeedSet: true,
		Kinds: []string{"genre"}, KindsSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "other.csv", cfg.Source)
	assert.Equal(t, 9, cfg.Count)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, []QuestionKind{KindGenre}, cfg.Synth.Kinds)
	assert.Equal(t, 2, cfg.Synth.K, "unset override keeps the file value")
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), Overrides{})
	require.Error(t, err)
	assert.Equal(t, ConfigErrNotFound, ConfigErrorCode(err))
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeConfig(t, "count: 3\ncolour: blue\n")
	_, err := LoadConfig(path, Overrides{})
	require.Error(t, err)
	assert.Equal(t, ConfigErrInvalid, ConfigErrorCode(err))
}

func TestLoadConfigMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "count: 3\n---\ncount: 4\n")
	_, err := LoadConfig(path, Overrides{})
	assert.Equal(t, ConfigErrInvalid, ConfigErrorCode(err))
}

func TestLoadConfigInvalidValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
count: 0
distractors: 11
kinds: [year, budget]
delimiter: ";;"
synonyms:
  naslov: heading
fetch_timeout: soon
review:
  enabled: true
`)

	_, err := LoadConfig(path, Overrides{})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ConfigErrInvalid, cfgErr.Code)
	assert.Len(t, cfgErr.Issues, 7)
}

func TestLoadConfigSynonymKeysNormalized(t *testing.T) {
	path := writeConfig(t, `
synonyms:
  "Film Name": title
  Release-Year: year
`)

	cfg, err := LoadConfig(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"film_name": ColumnTitle, "release_year": ColumnYear}, cfg.Loader.Synonyms)

	result, err := Load(strings.NewReader("Film Name,Release-Year\nHeat,1995\n"), cfg.Loader)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Heat", result.Records[0].Title)
	require.NotNil(t, result.Records[0].Year)
	assert.Equal(t, 1995, *result.Records[0].Year)
}

func TestLoadConfigSynonymCollision(t *testing.T) {
	path := writeConfig(t, `
synonyms:
  "Film Name": title
  film_name: director
  FILM-NAME: title
`)

	_, err := LoadConfig(path, Overrides{})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Issues, 1)
	assert.Contains(t, cfgErr.Issues[0], `"film_name"`)
}

func TestLoadConfigReviewUsesEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeConfig(t, "review:\n  enabled: true\n  model: gpt-4o-mini\n")

	cfg, err := LoadConfig(path, Overrides{})
	require.NoError(t, err)
	assert.True(t, cfg.Review.Enabled)
	assert.Equal(t, "gpt-4o-mini", cfg.Review.Model)
	assert.Equal(t, "sk-test", cfg.APIKey)

	cfg, err = LoadConfig(path, Overrides{Review: false, ReviewSet: true})
	require.NoError(t, err)
	assert.False(t, cfg.Review.Enabled)
}

func TestParseConfigEmpty(t *testing.T) {
	fc, err := ParseConfig([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, FileConfig{}, fc)
}
