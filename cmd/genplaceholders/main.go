package main

import (
	"flag"
	"os"

	"chosenoffset.com/tablemap/internal/logging"
	"chosenoffset.com/tablemap/internal/placeholders"
)

func main() {
	out := flag.String("out", "maps/backgrounds", "output directory")
	cols := flag.Int("cols", 20, "map width in tiles")
	rows := flag.Int("rows", 20, "map height in tiles")
	tile := flag.Int("tile", placeholders.DefaultTileSize, "tile size in pixels")
	seed := flag.Int64("seed", 9, "random seed")
	flag.Parse()

	log := logging.New("info", "text", os.Stderr)

	paths, err := placeholders.Generate(*out, placeholders.Options{
		Cols:     *cols,
		Rows:     *rows,
		TileSize: *tile,
		Seed:     *seed,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to generate backgrounds")
	}
	for _, p := range paths {
		log.WithField("path", p).Info("background written")
	}
}
