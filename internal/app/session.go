// Package app assembles the collaborators both hosts share: the board
// file, the position store, view preferences and audio cues.
package app

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"

	"chosenoffset.com/tablemap/internal/config"
	"chosenoffset.com/tablemap/internal/cue"
	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/mapfile"
	"chosenoffset.com/tablemap/internal/positions/sqlite"
	"chosenoffset.com/tablemap/internal/prefs"
	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/table"
)

// Session owns the resources opened for one run.
type Session struct {
	Config config.Config
	Board  *mapfile.Board
	Store  *sqlite.Store
	Prefs  *prefs.Manager
	Cues   *cue.Player
	Log    *logrus.Entry
}

// Open loads the configured board and opens storage and audio. A missing
// board file falls back to the first board in the boards directory.
func Open(cfg config.Config, log *logrus.Logger) (*Session, error) {
	entry := logging.Component(log, "app")

	board, err := loadBoard(cfg, entry)
	if err != nil {
		return nil, err
	}
	entry.WithFields(logrus.Fields{"board": board.Name, "path": board.Path}).Info("board loaded")

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open position store: %w", err)
	}

	return &Session{
		Config: cfg,
		Board:  board,
		Store:  store,
		Prefs:  prefs.Open(cfg.AppName, logrus.NewEntry(log)),
		Cues:   cue.NewPlayer(cfg.Audio, cfg.Volume, logrus.NewEntry(log)),
		Log:    entry,
	}, nil
}

func loadBoard(cfg config.Config, log *logrus.Entry) (*mapfile.Board, error) {
	board, err := mapfile.Load(cfg.BoardPath)
	if err == nil {
		return board, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	entries, scanErr := mapfile.Scan(cfg.BoardsDir)
	if scanErr != nil || len(entries) == 0 {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"missing":  cfg.BoardPath,
		"fallback": entries[0].Path,
	}).Warn("board file not found, opening first available board")
	return mapfile.Load(entries[0].Path)
}

// TableOptions returns table options wired to the session's collaborators.
func (s *Session) TableOptions(loader render.ImageLoader, sched render.Scheduler) table.Options {
	return table.Options{
		Store:     s.Store,
		Prefs:     s.Prefs,
		Cues:      s.Cues,
		Loader:    loader,
		Scheduler: sched,
		Logger:    logrus.NewEntry(s.Log.Logger),
		Zoom: table.ZoomLimits{
			Min:  s.Config.MinCellSizePx,
			Max:  s.Config.MaxCellSizePx,
			Step: s.Config.ZoomStepPx,
		},
	}
}

// Close releases audio and storage.
func (s *Session) Close() error {
	s.Cues.Close()
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("failed to close position store: %w", err)
	}
	return nil
}
