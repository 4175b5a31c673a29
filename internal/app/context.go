package app

import (
	"hanidl/internal/config"
	"hanidl/internal/domain"
	"hanidl/internal/logger"
	"hanidl/internal/progress"
)

// HistoryStore persists terminal job outcomes. The engine writes through
// this interface so it never imports the store package directly.
type HistoryStore interface {
	SaveJob(rec *domain.JobRecord) error
	ListJobs(limit int) ([]*domain.JobRecord, error)
}

// Context holds the shared environment for one process: configuration, the
// logger, the progress sink and the history store. It is assembled once at
// startup and passed explicitly; nothing here is process-global.
type Context struct {
	Config   *config.Config
	Logger   *logger.Logger
	Reporter progress.Reporter
	Store    HistoryStore
}

func NewContext(cfg *config.Config, log *logger.Logger, rep progress.Reporter) *Context {
	return &Context{
		Config:   cfg,
		Logger:   log,
		Reporter: rep,
	}
}
