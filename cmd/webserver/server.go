package main

import (
	"embed"
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/sessions"

	"moviequiz"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionName = "moviequiz-session"

// FormDefaults is what the new quiz form remembers between visits
type FormDefaults struct {
	Source string
	Count  int
	Seed   int64
}

func init() {
	gob.Register(FormDefaults{})
}

type Server struct {
	db         *moviequiz.DB
	generator  *moviequiz.QuizGenerator
	store      sessions.Store
	templates  map[string]*template.Template
	defaults   FormDefaults
	allowLocal bool
}

func newServer(db *moviequiz.DB, generator *moviequiz.QuizGenerator, store sessions.Store, defaults FormDefaults, allowLocal bool) *Server {
	templates := make(map[string]*template.Template)
	for _, name := range []string{"home", "new_quiz", "quiz"} {
		templates[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"))
	}
	return &Server{
		db:         db,
		generator:  generator,
		store:      store,
		templates:  templates,
		defaults:   defaults,
		allowLocal: allowLocal,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/quiz/new", s.handleNewQuiz)
	mux.HandleFunc("/quiz/", s.handleQuiz)
	return mux
}

func (s *Server) render(w http.ResponseWriter, name string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates[name].ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error in %s: %v", name, err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	quizzes, err := s.db.GetQuizzes(50)
	if err != nil {
		log.Printf("Failed to get quizzes: %v", err)
		http.Error(w, "Failed to get quizzes", http.StatusInternalServerError)
		return
	}

	s.render(w, "home", http.StatusOK, map[string]any{"Quizzes": quizzes})
}

// formDefaults returns the values last submitted in this session, or the
// server defaults
func (s *Server) formDefaults(r *http.Request) (*sessions.Session, FormDefaults) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// A cookie signed with an old key decodes to a fresh session
		moviequiz.VerboseLog("Session decode error: %v", err)
	}
	if form, ok := session.Values["form"].(FormDefaults); ok {
		return session, form
	}
	return session, s.defaults
}

func (s *Server) handleNewQuiz(w http.ResponseWriter, r *http.Request) {
	session, form := s.formDefaults(r)

	if r.Method == http.MethodGet {
		s.render(w, "new_quiz", http.StatusOK, map[string]any{"Form": form})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	form.Source = strings.TrimSpace(r.FormValue("source"))
	var problem string
	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil || count < 1 {
		problem = "Questions must be a positive number"
	} else {
		form.Count = count
	}
	seed, err := strconv.ParseInt(r.FormValue("seed"), 10, 64)
	if err != nil {
		problem = "Seed must be an integer"
	} else {
		form.Seed = seed
	}
	switch {
	case form.Source == "":
		problem = "A dataset path or URL is required"
	case !s.allowLocal && !isURL(form.Source):
		problem = "Only http and https datasets are allowed"
	}
	if problem != "" {
		s.render(w, "new_quiz", http.StatusBadRequest, map[string]any{"Form": form, "Error": problem})
		return
	}

	quiz, err := s.generator.GenerateQuiz(r.Context(), moviequiz.GenerationRequest{
		Source: form.Source,
		Count:  form.Count,
		Seed:   form.Seed,
	})
	if err != nil {
		log.Printf("Failed to generate quiz: %v", err)
		status := http.StatusInternalServerError
		var dsErr *moviequiz.DataSourceError
		if errors.As(err, &dsErr) {
			status = http.StatusBadRequest
		}
		s.render(w, "new_quiz", status, map[string]any{"Form": form, "Error": err.Error()})
		return
	}

	session.Values["form"] = form
	if err := session.Save(r, w); err != nil {
		log.Printf("Session save error: %v", err)
	}

	http.Redirect(w, r, "/quiz/"+quiz.ID, http.StatusSeeOther)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/quiz/")
	parts := strings.Split(path, "/")
	if parts[0] == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	quiz, err := s.db.LoadQuiz(parts[0])
	if err != nil {
		if errors.Is(err, moviequiz.ErrQuizNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Failed to load quiz %s: %v", parts[0], err)
		http.Error(w, "Failed to load quiz", http.StatusInternalServerError)
		return
	}

	if len(parts) == 1 {
		s.render(w, "quiz", http.StatusOK, map[string]any{"Quiz": quiz})
		return
	}

	switch parts[1] {
	case "export.csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", quiz.ID+".csv"))
		err = moviequiz.WriteCSV(w, quiz.Questions)
	case "export.json":
		w.Header().Set("Content-Type", "application/json")
		err = moviequiz.WriteJSON(w, quiz)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("Failed to export quiz %s: %v", quiz.ID, err)
	}
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
