package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/spf13/pflag"

	"moviequiz"
)

func main() {
	var (
		configPath = pflag.String("config", "", "Config file (default: moviequiz.yaml if present)")
		dbPath     = pflag.String("db", "./moviequiz.db", "Database path")
		port       = pflag.String("port", "", "Port to listen on (default: $PORT or 8180)")
		allowLocal = pflag.Bool("allow-local", false, "Allow datasets read from the server's filesystem")
		verbose    = pflag.Bool("verbose", true, "Enable verbose output")
	)
	pflag.Parse()

	moviequiz.SetVerbose(*verbose)

	cfg, err := moviequiz.LoadConfig(*configPath, moviequiz.Overrides{})
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := moviequiz.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// Without SESSION_KEY the form defaults only survive until restart
	key := []byte(os.Getenv("SESSION_KEY"))
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	generator := moviequiz.NewQuizGenerator(cfg, moviequiz.WithDB(db))
	server := newServer(db, generator, store, FormDefaults{
		Source: cfg.Source,
		Count:  cfg.Count,
		Seed:   cfg.Seed,
	}, *allowLocal)

	if *port == "" {
		*port = os.Getenv("PORT")
	}
	if *port == "" {
		*port = "8180"
	}

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Starting server on port %s", *port)
	log.Fatal(srv.ListenAndServe())
}
