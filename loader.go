package moviequiz

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Canonical column names understood by the loader
const (
	ColumnTitle     = "title"
	ColumnYear      = "year"
	ColumnDirector  = "director"
	ColumnLeadActor = "lead_actor"
	ColumnGenres    = "genres"
	ColumnRating    = "rating"
)

// defaultSynonyms maps normalized header names to canonical column names
var defaultSynonyms = map[string]string{
	"movie_title":   ColumnTitle,
	"movie":         ColumnTitle,
	"film":          ColumnTitle,
	"name":          ColumnTitle,
	"release_year":  ColumnYear,
	"released":      ColumnYear,
	"release":       ColumnYear,
	"actor":         ColumnLeadActor,
	"lead":          ColumnLeadActor,
	"main_actor":    ColumnLeadActor,
	"star":          ColumnLeadActor,
	"lead_role":     ColumnLeadActor,
	"directed_by":   ColumnDirector,
	"director_name": ColumnDirector,
	"genre":         ColumnGenres,
	"genre_tags":    ColumnGenres,
	"imdb_rating":   ColumnRating,
	"score":         ColumnRating,
}

// missingMarkers are cell values treated as "no value"
var missingMarkers = map[string]struct{}{
	"nan":  {},
	"n/a":  {},
	"na":   {},
	"null": {},
	"none": {},
}

// LoaderOptions controls how a dataset is parsed
type LoaderOptions struct {
	Delimiter rune              // defaults to ','
	Synonyms  map[string]string // extra header synonyms, raw name -> canonical column
}

func (o LoaderOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// LoadFile opens path and loads the dataset it contains
func LoadFile(path string, opts LoaderOptions) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataSourceError{Source: path, Err: err}
	}
	defer f.Close()

	result, err := Load(f, opts)
	if err != nil {
		var dsErr *DataSourceError
		if errors.As(err, &dsErr) && dsErr.Source == "" {
			dsErr.Source = path
		}
		return nil, err
	}
	return result, nil
}

// Load reads delimited text with a header row and returns the normalized
// records. Malformed rows are skipped and listed in the result; only an
// unreadable source or a header without a title column is an error.
func Load(r io.Reader, opts LoaderOptions) (*LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DataSourceError{Err: fmt.Errorf("failed to read dataset: %w", err)}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if len(bytes.TrimSpace(data)) == 0 {
		return &LoadResult{Records: []MovieRecord{}, Skipped: []SkippedRow{}}, nil
	}

	result, err := parseStrict(data, opts)
	if err == nil {
		return result, nil
	}
	var dsErr *DataSourceError
	if errors.As(err, &dsErr) {
		return nil, err
	}

	log.Printf("Strict CSV parse failed, falling back to lenient parser: %v", err)
	return parsePermissive(data, opts)
}

// parseStrict parses data with encoding/csv and a fixed column count.
// Any structural problem aborts the whole parse.
func parseStrict(data []byte, opts LoaderOptions) (*LoadResult, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.delimiter()
	reader.FieldsPerRecord = 0 // fixed by the header

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := newColumnMap(header, opts)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		Header:  cols.names,
		Records: []MovieRecord{},
		Skipped: []SkippedRow{},
	}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		result.addRow(cols, fields, line)
	}
	return result, nil
}

// parsePermissive reads data with a lenient CSV reader: stray quotes are
// taken literally and rows may vary in width. Surplus fields are folded back
// into the last column; rows that end up short are skipped.
func parsePermissive(data []byte, opts LoaderOptions) (*LoadResult, error) {
	delim := opts.delimiter()
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		cols   *columnMap
		result = &LoadResult{Records: []MovieRecord{}, Skipped: []SkippedRow{}, Fallback: true}
	)
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataSourceError{Err: fmt.Errorf("failed to parse dataset: %w", err)}
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		lineNum, _ := reader.FieldPos(0)

		if cols == nil {
			cols, err = newColumnMap(fields, opts)
			if err != nil {
				return nil, err
			}
			result.Header = cols.names
			continue
		}

		fields = foldSurplus(fields, cols.width, delim)
		if len(fields) != cols.width {
			result.Skipped = append(result.Skipped, SkippedRow{
				Line:    lineNum,
				Columns: len(fields),
				Reason:  fmt.Sprintf("expected %d columns", cols.width),
			})
			VerboseLog("Skipping line %d: %d columns, expected %d", lineNum, len(fields), cols.width)
			continue
		}
		result.addRow(cols, fields, lineNum)
	}

	if cols == nil {
		return nil, &DataSourceError{Err: errors.New("no header row")}
	}
	return result, nil
}

// foldSurplus joins every field past width-1 into the last column
func foldSurplus(fields []string, width int, delim rune) []string {
	if width < 1 || len(fields) <= width {
		return fields
	}
	last := strings.Join(fields[width-1:], string(delim))
	return append(fields[:width-1:width-1], last)
}

func (r *LoadResult) addRow(cols *columnMap, fields []string, line int) {
	record, ok := cols.record(fields, line)
	if !ok {
		r.Skipped = append(r.Skipped, SkippedRow{Line: line, Columns: len(fields), Reason: "missing title"})
		VerboseLog("Skipping line %d: missing title", line)
		return
	}
	r.Records = append(r.Records, record)
}

// columnMap locates canonical columns in a header row
type columnMap struct {
	names []string       // normalized header names, in source order
	index map[string]int // canonical column -> position
	width int
}

func newColumnMap(header []string, opts LoaderOptions) (*columnMap, error) {
	synonyms := normalizeSynonyms(opts.Synonyms)
	cols := &columnMap{
		names: make([]string, len(header)),
		index: make(map[string]int),
		width: len(header),
	}
	for i, h := range header {
		name := normalizeHeader(h, synonyms)
		cols.names[i] = name
		if _, exists := cols.index[name]; !exists && name != "" {
			cols.index[name] = i
		}
	}
	if _, ok := cols.index[ColumnTitle]; !ok {
		return nil, &DataSourceError{Err: fmt.Errorf("no %s column in header %q", ColumnTitle, header)}
	}
	return cols, nil
}

func (c *columnMap) cell(fields []string, column string) (string, bool) {
	i, ok := c.index[column]
	if !ok || i >= len(fields) {
		return "", false
	}
	return cleanCell(fields[i])
}

func (c *columnMap) record(fields []string, line int) (MovieRecord, bool) {
	title, ok := c.cell(fields, ColumnTitle)
	if !ok {
		return MovieRecord{}, false
	}

	record := MovieRecord{Title: title, Genres: []string{}, Line: line}
	if v, ok := c.cell(fields, ColumnYear); ok {
		record.Year = parseYear(v)
	}
	if v, ok := c.cell(fields, ColumnRating); ok {
		record.Rating = parseRating(v)
	}
	if v, ok := c.cell(fields, ColumnDirector); ok {
		record.Director = &v
	}
	if v, ok := c.cell(fields, ColumnLeadActor); ok {
		record.LeadActor = &v
	}
	if v, ok := c.cell(fields, ColumnGenres); ok {
		record.Genres = SplitGenres(v)
	}
	return record, true
}

// NormalizeHeader trims, lowercases and maps a header name to its canonical
// column. extra synonyms take precedence over the built-in ones; their keys
// are normalized the same way as the header.
func NormalizeHeader(name string, extra map[string]string) string {
	return normalizeHeader(name, normalizeSynonyms(extra))
}

// normalizeHeader is NormalizeHeader for synonyms already keyed by
// normalizeName
func normalizeHeader(name string, synonyms map[string]string) string {
	n := normalizeName(name)
	if canonical, ok := synonyms[n]; ok {
		return canonical
	}
	if canonical, ok := defaultSynonyms[n]; ok {
		return canonical
	}
	return n
}

// normalizeName lowercases a header name and turns spaces and dashes into
// underscores
func normalizeName(name string) string {
	n := strings.ToLower(unquote(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(n)
}

// normalizeSynonyms rekeys extra by normalizeName. When two keys collide the
// lexicographically smallest raw key wins.
func normalizeSynonyms(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	raws := make([]string, 0, len(extra))
	for raw := range extra {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	out := make(map[string]string, len(extra))
	for _, raw := range raws {
		key := normalizeName(raw)
		if _, taken := out[key]; !taken {
			out[key] = extra[raw]
		}
	}
	return out
}

// SplitGenres splits a genre cell on '|' or, when no '|' is present, on ','.
// Blank and repeated tags are dropped.
func SplitGenres(value string) []string {
	sep := ","
	if strings.Contains(value, "|") {
		sep = "|"
	}

	genres := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(value, sep) {
		tag, ok := cleanCell(part)
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		genres = append(genres, tag)
	}
	return genres
}

func parseYear(s string) *int {
	if y, err := strconv.Atoi(s); err == nil {
		return &y
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil
	}
	y := int(f)
	return &y
}

func parseRating(s string) *float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// cleanCell trims a cell and reports false when it holds no value
func cleanCell(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return "", false
	}
	return s, true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return strings.TrimSpace(s)
}
