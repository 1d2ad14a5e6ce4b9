package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"studyclock/internal/clock"
	"studyclock/internal/config"
	"studyclock/internal/core/engine"
	"studyclock/internal/platform"
	"studyclock/internal/storage"
)

const appName = "studyclock"

func main() {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		log.Printf("single instance: %v", err)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	manager, err := config.NewManager(appName)
	if err != nil {
		log.Printf("load config: %v (using defaults)", err)
	}
	cfg := manager.Config()

	snapshotPath, historyPath, err := dataPaths(cfg)
	if err != nil {
		log.Printf("resolve data paths: %v", err)
		return
	}

	store := storage.NewSnapshotStore(snapshotPath)
	history, err := storage.NewHistoryStore(historyPath)
	if err != nil {
		log.Printf("open history db: %v (history disabled)", err)
		history = nil
	}

	timer := engine.New(cfg.Cycle(), engine.Options{Store: store, History: history})

	snapshot, err := store.Load()
	switch {
	case err == nil:
		if err := timer.Restore(snapshot); err != nil {
			log.Printf("restore snapshot: %v (starting fresh)", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		// first run
	case errors.Is(err, storage.ErrCorrupted):
		log.Printf("snapshot corrupted: %v (starting fresh)", err)
	default:
		log.Printf("load snapshot: %v (starting fresh)", err)
	}

	if history != nil {
		units, err := history.UnitsSince(startOfDay(time.Now()))
		if err != nil {
			log.Printf("query daily units: %v", err)
		} else {
			timer.SetDailyUnits(units)
		}
	}

	events := timer.Subscribe(8)
	go func() {
		for event := range events {
			handleEvent(timer, event)
		}
	}()

	source := clock.NewTicker(cfg.TickInterval)
	timer.Run(source.Ticks())

	if timer.CurrentState().Status == engine.StatusIdle {
		if err := timer.Start(); err != nil {
			log.Printf("start timer: %v", err)
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	fmt.Println()
	source.Stop()
	timer.Stop()

	stats := timer.Statistics()
	if history != nil {
		if totals, err := history.Totals(); err != nil {
			log.Printf("query history totals: %v", err)
		} else {
			stats = totals
		}
		_ = history.Close()
	}
	log.Printf("saved: %d focus units, %s focus time, efficiency %.0f%%",
		stats.FocusUnits, formatHours(stats.FocusTime), stats.Efficiency()*100)
}

func handleEvent(timer *engine.Engine, event engine.Event) {
	switch event.Type {
	case engine.EventStateChange:
		fmt.Println()
		if event.Status == engine.StatusIdle {
			log.Printf("timer idle")
			return
		}
		log.Printf("%s started (%s)", event.Kind, formatClock(event.Remaining))
	case engine.EventSessionEnd:
		fmt.Println()
		log.Printf("%s %s", event.Kind, event.Message)
	case engine.EventReminder:
		fmt.Println()
		log.Printf("reminder: %s of focus left", formatClock(event.Remaining))
	case engine.EventPersistError:
		fmt.Println()
		log.Printf("persist: %s", event.Message)
	case engine.EventProgress:
		progress := timer.Progress()
		fmt.Printf("\r%s %s  today %s/%s (%d%%)   ",
			strings.ToUpper(string(event.Kind)),
			formatClock(event.Remaining),
			formatHours(progress.Done), formatHours(progress.Total), progress.Percent)
	}
}

func dataPaths(cfg config.Config) (snapshotPath, historyPath string, err error) {
	if cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, "snapshot.yaml"),
			filepath.Join(cfg.DataDir, "history.db"), nil
	}
	snapshotPath, err = storage.DefaultSnapshotPath(appName)
	if err != nil {
		return "", "", err
	}
	historyPath, err = storage.DefaultHistoryPath(appName)
	if err != nil {
		return "", "", err
	}
	return snapshotPath, historyPath, nil
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func formatClock(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func formatHours(total time.Duration) string {
	if total < 0 {
		total = 0
	}
	seconds := int(total.Seconds())
	return fmt.Sprintf("%d:%02d", seconds/3600, (seconds%3600)/60)
}
