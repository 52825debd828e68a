package httpapi

import (
	"sync/atomic"

	"employers-engine/internal/config"
	"employers-engine/internal/events"
	"employers-engine/internal/loader"
	"employers-engine/internal/page"
)

type StatusSource interface {
	Status() loader.Status
}

type Deps struct {
	Page *page.Page
	Hub  *events.Hub

	Loader StatusSource

	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error) // optional
}
