// Package cue plays short audio cues for board interactions.
package cue

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/sirupsen/logrus"

	"chosenoffset.com/tablemap/internal/logging"
)

const sampleRate = beep.SampleRate(44100)

// Note is one tone of a cue.
type Note struct {
	Freq     float64
	Duration time.Duration
}

// Cues played by the table.
var (
	SelectCue = []Note{{Freq: 660, Duration: 40 * time.Millisecond}}
	DropCue   = []Note{{Freq: 440, Duration: 60 * time.Millisecond}}
	TurnCue   = []Note{{Freq: 523, Duration: 70 * time.Millisecond}, {Freq: 784, Duration: 90 * time.Millisecond}}
)

// Player plays cues through the system speaker. A player whose speaker
// failed to initialise stays silent.
type Player struct {
	enabled bool
	volume  float64
	log     *logrus.Entry
}

// NewPlayer initialises the speaker. volume is in beep's log2 units, 0 is
// unchanged and -1 halves the amplitude. Audio failure is not fatal.
func NewPlayer(enabled bool, volume float64, log *logrus.Entry) *Player {
	p := &Player{volume: volume, log: logging.Component(log, "cue")}
	if !enabled {
		return p
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		p.log.WithError(err).Warn("audio initialization failed, cues disabled")
		return p
	}
	p.enabled = true
	return p
}

// Enabled reports whether cues are audible.
func (p *Player) Enabled() bool {
	return p.enabled
}

// Select plays the selection cue.
func (p *Player) Select() { p.play(SelectCue) }

// Drop plays the cue for a completed move.
func (p *Player) Drop() { p.play(DropCue) }

// Turn plays the cue for a new turn.
func (p *Player) Turn() { p.play(TurnCue) }

func (p *Player) play(notes []Note) {
	if !p.enabled {
		return
	}
	s, err := Sequence(notes)
	if err != nil {
		p.log.WithError(err).Debug("failed to build cue")
		return
	}
	speaker.Play(&effects.Volume{Streamer: s, Base: 2, Volume: p.volume})
}

// Close releases the speaker.
func (p *Player) Close() {
	if p.enabled {
		speaker.Close()
		p.enabled = false
	}
}

// Sequence builds a streamer playing notes back to back.
func Sequence(notes []Note) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		sine, err := generators.SineTone(sampleRate, n.Freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(sampleRate.N(n.Duration), sine))
	}
	return beep.Seq(parts...), nil
}
