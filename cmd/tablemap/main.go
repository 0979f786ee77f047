package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"chosenoffset.com/tablemap/internal/app"
	"chosenoffset.com/tablemap/internal/config"
	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/mapfile"
	"chosenoffset.com/tablemap/internal/render"
	ebitenrender "chosenoffset.com/tablemap/internal/render/ebiten"
	"chosenoffset.com/tablemap/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	board := flag.String("board", cfg.BoardPath, "board file to open")
	list := flag.Bool("list", false, "list boards in the boards directory and exit")
	flag.Parse()
	cfg.BoardPath = *board

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if *list {
		entries, err := mapfile.Scan(cfg.BoardsDir)
		if err != nil {
			log.WithError(err).Fatal("failed to scan boards")
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\n", e.Name, e.Path)
		}
		return
	}

	session, err := app.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}
	defer session.Close()

	scale := ebitenrender.DeviceScale()
	queue := render.NewFrameQueue()
	surface := ebitenrender.NewSurface(scale)

	opts := session.TableOptions(ebitenrender.NewLoader(cfg.ImageTimeout), queue)
	tbl, err := table.New(context.Background(), surface, session.Board, opts)
	if err != nil {
		log.WithError(err).Error("failed to open board")
		return
	}
	defer tbl.Close()

	manager := table.NewManager(tbl, surface, queue, ebitenrender.NewInputManager(), scale)

	engine := ebitenrender.NewEngine()
	engine.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	engine.SetWindowTitle("tablemap - " + session.Board.Name)
	engine.SetWindowResizable(true)

	log.Info("starting")
	if err := engine.RunGame(manager); err != nil && !errors.Is(err, table.ErrQuit) {
		log.WithError(err).Error("game loop stopped")
	}
}
