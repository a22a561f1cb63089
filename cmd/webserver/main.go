package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"devmock"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := devmock.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	devmock.SetVerbose(cfg.Verbose)

	db, err := devmock.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	library, err := devmock.OpenLibrary(cfg.LibraryDir)
	if err != nil {
		log.Fatalf("Failed to open library %s: %v", cfg.LibraryDir, err)
	}

	var maker *devmock.QuestionMaker
	if cfg.APIKey != "" {
		maker = devmock.NewQuestionMakerWithConfig(cfg.MakerConfig())
	} else {
		log.Printf("No API key configured; AI interviews are disabled")
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		log.Printf("No session secret configured; sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}
	server := NewServer(db, library, maker, newCookieStore(secret), cfg.LogDir)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting server on port %s", cfg.Port)
	log.Fatal(httpServer.ListenAndServe())
}

// newCookieStore keeps the interview cookie on plain http too; the store's
// defaults would mark it Secure with SameSite=None.
func newCookieStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
