package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"

	"chosenoffset.com/tablemap/internal/app"
	"chosenoffset.com/tablemap/internal/config"
	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/render"
	"chosenoffset.com/tablemap/internal/render/term"
	"chosenoffset.com/tablemap/internal/table"
	"chosenoffset.com/tablemap/internal/termhost"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	board := flag.String("board", cfg.BoardPath, "board file to open")
	cell := flag.Float64("cell", 20, "cell size in logical pixels (5x10 per character)")
	logPath := flag.String("log", "tablemap-term.log", "log file; the terminal is taken by the board")
	flag.Parse()
	cfg.BoardPath = *board
	// Keep terminal zoom separate from the window host.
	cfg.AppName += "-term"

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, logFile)

	session, err := app.Open(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()
	session.Board.Grid.CellSizePx = *cell

	screen, err := tcell.NewScreen()
	if err != nil {
		log.WithError(err).Error("failed to create screen")
		return
	}
	if err := screen.Init(); err != nil {
		log.WithError(err).Error("failed to init screen")
		return
	}
	defer screen.Fini()
	screen.EnableMouse()

	queue := render.NewFrameQueue()
	surface := term.NewSurface(image.Pt(0, 1))
	opts := session.TableOptions(term.NewLoader(cfg.ImageTimeout), queue)
	tbl, err := table.New(context.Background(), surface, session.Board, opts)
	if err != nil {
		log.WithError(err).Error("failed to open board")
		return
	}
	defer tbl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := termhost.New(screen, tbl, surface, queue).Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("terminal loop stopped")
	}
}
