package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"employers-engine/internal/config"
	"employers-engine/internal/events"
	"employers-engine/internal/fetch"
	"employers-engine/internal/httpapi"
	"employers-engine/internal/loader"
	"employers-engine/internal/page"
	"employers-engine/internal/render"
)

// engine holds the wired page, loader and change stream.
type engine struct {
	cfg     config.Config
	page    *page.Page
	trigger *page.Trigger
	region  *page.Region
	hub     *events.Hub
	loader  *loader.Loader
	sink    *page.FileSink
	mirror  *page.Mirror
}

func newEngine(cfg config.Config, dataDir string, log *slog.Logger) (*engine, error) {
	p, err := page.Parse(page.Shell(cfg.Page.TriggerID, cfg.Page.RegionID))
	if err != nil {
		return nil, err
	}
	region, err := p.Region(cfg.Page.RegionID)
	if err != nil {
		return nil, err
	}
	trigger, err := p.Trigger(cfg.Page.TriggerID)
	if err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, page: p, trigger: trigger, region: region, hub: events.NewHub()}

	if cfg.Page.File != "" {
		path := cfg.Page.File
		if !filepath.IsAbs(path) {
			base := cfg.App.DataDir
			if base == "" || base == "." {
				base = dataDir
			}
			path = filepath.Join(base, path)
		}
		e.sink = page.NewFileSink(path)
		if err := e.sink.Sync(p); err != nil {
			return nil, fmt.Errorf("write page file: %w", err)
		}
		e.mirror = page.NewMirror(e.sink, p, func(err error) {
			log.Warn("page file write failed", "path", e.sink.Path, "err", err)
		})
	}

	// Region replacement runs under the loader's lock, so observers only
	// queue work.
	p.OnChange(func(c page.Change) {
		e.hub.Publish(events.MakeEvent("", events.TypeRegionUpdated, 1, c))
		if e.mirror != nil {
			e.mirror.Request()
		}
	})

	client := fetch.New(fetch.Config{
		URL:     cfg.EndpointURL(),
		Timeout: cfg.Timeout(),
		Limiter: fetch.NewHostLimiter(cfg.API.RatePerSec, cfg.API.Burst),
	}, nil)

	l, err := loader.New(loader.Deps{
		Trigger:  trigger,
		Region:   region,
		Source:   client,
		Renderer: render.Renderer{Escape: cfg.Render.EscapeNames},
		Log:      log,
		Policy:   loader.Policy(cfg.Loader.Policy),
		OnRendered: func(r loader.Result) {
			e.hub.Publish(events.MakeEvent(r.CycleID, events.TypeEmployersRendered, 1, map[string]any{
				"count":      r.Count,
				"generation": r.Generation,
			}))
		},
		OnFailed: func(cycleID string, err error) {
			e.hub.Publish(events.MakeEvent(cycleID, events.TypeEmployersFailed, 1, map[string]any{
				"error": err.Error(),
			}))
		},
	})
	if err != nil {
		return nil, err
	}
	if err := l.Bind(); err != nil {
		return nil, err
	}
	e.loader = l
	return e, nil
}

func (e *engine) handler(cfgVal *atomic.Value, userCfgPath string) *http.ServeMux {
	return httpapi.NewMux(httpapi.Deps{
		Page:        e.page,
		Hub:         e.hub,
		Loader:      e.loader,
		CfgVal:      cfgVal,
		UserCfgPath: userCfgPath,
	})
}

func (e *engine) close() {
	e.loader.Close()
	if e.mirror != nil {
		e.mirror.Close()
	}
	e.hub.Close()
}
