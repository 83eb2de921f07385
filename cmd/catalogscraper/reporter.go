package main

import (
	"os"
	"sync"

	"catalogscraper/pkg/config"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/scraper"
	"catalogscraper/pkg/ui"
	"catalogscraper/pkg/ui/tui"

	"golang.org/x/term"
)

// newReporter picks how per-item progress is shown: the dashboard on an
// interactive terminal, progress lines otherwise or with --quiet/--plain.
// The dashboard owns stdout until done runs, so logging goes to the log
// file only in the meantime; use the returned logger for the stage.
// done may be called more than once.
func newReporter(cfg *config.Config, interrupt func()) (rep scraper.Reporter, log logger.Logger, done func()) {
	log = logger.GetLogger()
	if quiet || plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ui.NewProgress(os.Stdout, quiet), log, func() {}
	}

	fileLog, err := logger.NewFileOnly(&cfg.Logging)
	if err != nil {
		log.WithError(err).Warn("Dashboard unavailable, using plain progress")
		return ui.NewProgress(os.Stdout, quiet), log, func() {}
	}
	logger.SetLogger(fileLog)
	dash := tui.New(os.Stdout, interrupt)

	var once sync.Once
	return dash, fileLog, func() {
		once.Do(func() {
			err := dash.Close()
			logger.SetLogger(log)
			if err != nil {
				log.WithError(err).Warn("Dashboard exited with an error")
			}
		})
	}
}
