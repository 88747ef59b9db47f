package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusgrid/forum-service/internal/api"
	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/config"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/events"
	"github.com/campusgrid/forum-service/internal/logger"
	"github.com/campusgrid/forum-service/internal/storage"
	"github.com/campusgrid/forum-service/internal/storage/inmemory"
	"github.com/campusgrid/forum-service/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// The store is constructed once here and injected everywhere; there is no
	// package-level handle.
	var store storage.Storage
	log.Info("starting server", "storage", cfg.Storage.Backend)
	if cfg.Storage.Backend == "postgres" {
		store, err = postgres.New(cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to postgres", "error", err)
		}
	} else {
		mem := inmemory.New()
		fillWithMockData(mem, log)
		store = mem
	}

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	server := api.NewServer(store, verifier, events.NewObserver(), log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
}

// fillWithMockData seeds the in-memory backend so the dev server has
// something to display.
func fillWithMockData(s storage.Storage, log *logger.Logger) {
	ctx := context.Background()

	question, err := s.CreateQuestion(ctx, &domain.Question{
		UniversityID: "uni-metro",
		AuthorID:     "user-1",
		Title:        "Which electives pair well with distributed systems?",
		Content:      "I am taking the distributed systems course next term and want a complementary elective.",
	})
	if err != nil {
		log.Fatal("mock data: failed to create question", "error", err)
	}

	first, err := s.CreateReply(ctx, &domain.Reply{
		QuestionID: question.ID,
		AuthorID:   "user-2",
		Content:    "Databases. Half of distributed systems is figuring out where your state lives.",
	})
	if err != nil {
		log.Fatal("mock data: failed to create reply", "error", err)
	}

	if _, err := s.CreateReply(ctx, &domain.Reply{
		QuestionID: question.ID,
		ParentID:   &first.ID,
		AuthorID:   "user-1",
		Content:    "Thanks, that matches what the course staff suggested.",
	}); err != nil {
		log.Fatal("mock data: failed to create nested reply", "error", err)
	}

	if _, err := s.ToggleReplyLike(ctx, first.ID, "user-3"); err != nil {
		log.Fatal("mock data: failed to like reply", "error", err)
	}

	if _, err := s.CreateAlumniMessage(ctx, &domain.AlumniMessage{
		UniversityID: "uni-metro",
		AuthorID:     "alum-1",
		Content:      "Class of 2019 here, happy to review resumes before the career fair.",
	}); err != nil {
		log.Fatal("mock data: failed to create alumni message", "error", err)
	}

	log.Info("mock data filled", "questionId", question.ID)
}
