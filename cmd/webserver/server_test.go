package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviequiz"
)

const testCSV = `title,year,director,lead_actor,genres
Matrix,1999,Wachowski,Reeves,Action|SciFi
Up,2009,Docter,Asner,Animation
Heat,1995,Mann,Pacino,Crime|Drama
`

func newTestServer(t *testing.T, allowLocal bool) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	dataset := filepath.Join(dir, "movies.csv")
	require.NoError(t, os.WriteFile(dataset, []byte(testCSV), 0644))

	db, err := moviequiz.OpenDB(filepath.Join(dir, "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB() })
	require.NoError(t, db.CreateTables())

	cfg := moviequiz.DefaultConfig()
	generator := moviequiz.NewQuizGenerator(cfg, moviequiz.WithDB(db))
	store := sessions.NewCookieStore(securecookie.GenerateRandomKey(32))
	defaults := FormDefaults{Count: 5, Seed: 42}
	return newServer(db, generator, store, defaults, allowLocal), dataset
}

func postForm(handler http.Handler, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/quiz/new", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewQuizFlow(t *testing.T) {
	server, dataset := newTestServer(t, true)
	handler := server.routes()

	rec := postForm(handler, url.Values{"source": {dataset}, "count": {"4"}, "seed": {"7"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/quiz/"))

	// The quiz page renders the stored questions
	page := httptest.NewRecorder()
	handler.ServeHTTP(page, httptest.NewRequest(http.MethodGet, location, nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "seed 7")
	assert.Contains(t, page.Body.String(), `class="correct"`)

	csvRec := httptest.NewRecorder()
	handler.ServeHTTP(csvRec, httptest.NewRequest(http.MethodGet, location+"/export.csv", nil))
	assert.Equal(t, http.StatusOK, csvRec.Code)
	assert.True(t, strings.HasPrefix(csvRec.Body.String(), "id,type,question,correct,"))
	assert.Equal(t, 5, strings.Count(csvRec.Body.String(), "\n"))

	// The form remembers the last submission through the session cookie
	form := httptest.NewRequest(http.MethodGet, "/quiz/new", nil)
	for _, c := range rec.Result().Cookies() {
		form.AddCookie(c)
	}
	formRec := httptest.NewRecorder()
	handler.ServeHTTP(formRec, form)
	assert.Contains(t, formRec.Body.String(), `value="7"`)
	assert.Contains(t, formRec.Body.String(), `value="4"`)

	home := httptest.NewRecorder()
	handler.ServeHTTP(home, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, home.Body.String(), location)
}

func TestNewQuizValidation(t *testing.T) {
	server, dataset := newTestServer(t, false)
	handler := server.routes()

	rec := postForm(handler, url.Values{"source": {dataset}, "count": {"4"}, "seed": {"1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only http and https datasets are allowed")

	rec = postForm(handler, url.Values{"source": {"https://example.test/m.csv"}, "count": {"0"}, "seed": {"1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Questions must be a positive number")
}

func TestNewQuizBadDataset(t *testing.T) {
	server, _ := newTestServer(t, true)
	rec := postForm(server.routes(), url.Values{"source": {filepath.Join(t.TempDir(), "missing.csv")}, "count": {"4"}, "seed": {"1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuizNotFound(t *testing.T) {
	server, _ := newTestServer(t, true)
	handler := server.routes()

	for _, path := range []string{"/quiz/nope", "/quiz/", "/elsewhere"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
