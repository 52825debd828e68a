package httpapi

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"employers-engine/internal/config"
)

type ConfigHandler struct {
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error) // defaults to reading UserCfgPath
}

func (h ConfigHandler) current() (config.Config, bool) {
	if h.CfgVal == nil {
		return config.Config{}, false
	}
	cfg, ok := h.CfgVal.Load().(config.Config)
	return cfg, ok
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.current()
	if !ok {
		WriteError(w, r, http.StatusServiceUnavailable, "no_config", "config not loaded")
		return
	}
	writeJSON(w, cur)
}

// Put merges the JSON body over the current config, saves it to the user
// config file and stores the reloaded result. Running components keep the
// config they were built with until restart.
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	incoming, ok := h.current()
	if !ok {
		WriteError(w, r, http.StatusServiceUnavailable, "no_config", "config not loaded")
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if dec.More() {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "trailing data")
		return
	}

	normalized, vr := config.NormalizeAndValidate(incoming)
	if !vr.OK() {
		WriteJSON(w, http.StatusBadRequest, vr)
		return
	}

	if err := config.SaveAtomic(h.UserCfgPath, normalized); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}

	saved, err := h.load()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "reload_failed", "saved but reload failed: "+err.Error())
		return
	}
	h.CfgVal.Store(saved)
	writeJSON(w, saved)
}

func (h ConfigHandler) load() (config.Config, error) {
	if h.LoadCfg != nil {
		return h.LoadCfg()
	}
	raw, err := config.Load(h.UserCfgPath)
	if err != nil {
		return raw, err
	}
	cfg, _ := config.NormalizeAndValidate(raw)
	return cfg, nil
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, map[string]any{"path": abs})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.current()
	if !ok {
		WriteError(w, r, http.StatusServiceUnavailable, "no_config", "config not loaded")
		return
	}
	_, vr := config.NormalizeAndValidate(cur)
	writeJSON(w, vr)
}
