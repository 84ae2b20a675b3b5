package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/word-quest/internal/config"
	"github.com/jwebster45206/word-quest/internal/logger"
	"github.com/jwebster45206/word-quest/internal/storage"
	"github.com/jwebster45206/word-quest/pkg/dice"
)

func main() {
	logPath := flag.String("log", "word-quest-console.log", "file to write logs to")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.SetupTo(cfg, logFile)

	// the console always plays from a local database
	kv, err := storage.OpenSQLiteKV(cfg.SQLitePath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open local storage: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = kv.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	profileID, err := deviceProfile(ctx, kv)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	library, err := storage.LoadLibrary(cfg.DataDir, kv, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load worlds from %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}

	g := newGame(library,
		storage.NewProgressStore(kv, log),
		profileID,
		dice.NewRandomRoller(time.Now().UnixNano()),
		cfg.DiceFlourishes,
		log)

	log.Info("Console started", "profile_id", profileID, "data_dir", cfg.DataDir, "sqlite_path", cfg.SQLitePath)

	p := tea.NewProgram(NewConsoleUI(g),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
