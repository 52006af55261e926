package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/utils/clock"

	"github.com/robmorgan/lumen/internal/showlog"
	"github.com/robmorgan/lumen/render"
	"github.com/robmorgan/lumen/rhythm"
	"github.com/robmorgan/lumen/transport/ola"
)

func main() {
	log := showlog.Get()

	metronome := rhythm.New(clock.RealClock{}, rhythm.WithBPM(120))

	var transport render.Transport
	if t, err := ola.Dial("localhost:9010"); err != nil {
		log.Warnf("could not connect to OLA, running without DMX output: %v", err)
	} else {
		transport = t
		defer t.Close()
	}

	show := render.NewShow(metronome, render.WithTransport(transport))
	show.Start()
	defer show.Stop()

	go func() {
		for err := range show.Errors() {
			log.WithError(err).Warn("render error")
		}
	}()

	if err := tea.NewProgram(newModel(show)).Start(); err != nil {
		fmt.Println("Error running console:", err)
		os.Exit(1)
	}
}
