package moviequiz

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultFetchTimeout = 20 * time.Second
	defaultFetchRetries = 2
	maxDatasetBytes     = 32 << 20
)

// FetchOptions controls how remote datasets are fetched
type FetchOptions struct {
	Timeout   time.Duration // total per-request timeout, defaults to 20s
	RetryMax  int           // retries after the first attempt on transport errors
	Client    *http.Client  // overrides the client built from Timeout
	Delimiter rune          // delimiter used when converting HTML tables
}

// HTTPStatusError reports a non-2xx response from a dataset URL
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// OpenSource opens a dataset location: "-" for stdin, an http(s) URL, or a
// local path. HTML pages are reduced to the delimited text of their first
// table. Every failure is a *DataSourceError.
func OpenSource(ctx context.Context, location string, opts FetchOptions) (io.ReadCloser, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, &DataSourceError{Err: errors.New("no dataset location given")}
	case location == "-":
		return io.NopCloser(os.Stdin), nil
	case isRemote(location):
		data, err := fetchRemote(ctx, location, opts)
		if err != nil {
			return nil, &DataSourceError{Source: location, Err: err}
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, &DataSourceError{Source: location, Err: err}
	}
	return f, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func fetchRemote(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := opts.RetryMax
	if retries < 0 {
		retries = 0
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "text/csv, text/plain, text/html;q=0.8, */*;q=0.5")

		resp, lastErr = client.Do(req)
		if lastErr == nil {
			break
		}
		VerboseLog("Fetch attempt %d for %s failed: %v", attempt+1, url, lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", lastErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if isHTML(resp.Header.Get("Content-Type"), body) {
		text, err := HTMLToDelimited(bytes.NewReader(body), opts.Delimiter)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	return body, nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	return strings.HasPrefix(http.DetectContentType(body), "text/html")
}

// HTMLToDelimited converts the first <table> of an HTML page into delimited
// text, header row first. Pages without a table fall back to the text of
// their first <pre> block.
func HTMLToDelimited(r io.Reader, delimiter rune) (string, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		pre := doc.Find("pre").First()
		if pre.Length() == 0 {
			return "", errors.New("html page has no table or pre block")
		}
		return pre.Text(), nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	var writeErr error
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if writeErr != nil {
			return
		}
		cells := row.Find("th, td")
		if cells.Length() == 0 {
			return
		}
		fields := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			fields = append(fields, strings.Join(strings.Fields(cell.Text()), " "))
		})
		writeErr = w.Write(fields)
	})
	if writeErr != nil {
		return "", fmt.Errorf("failed to convert table: %w", writeErr)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to convert table: %w", err)
	}
	return buf.String(), nil
}
