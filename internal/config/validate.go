package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Validate returns the hard errors of NormalizeAndValidate as one error.
func Validate(cfg Config) error {
	_, res := NormalizeAndValidate(cfg)
	if res.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(res.Errors, "\n- "))
}

// NormalizeAndValidate returns a trimmed copy of cfg plus its validation.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.API.BaseURL = strings.TrimSpace(out.API.BaseURL)
	out.API.Path = strings.TrimSpace(out.API.Path)
	out.Page.TriggerID = strings.TrimPrefix(strings.TrimSpace(out.Page.TriggerID), "#")
	out.Page.RegionID = strings.TrimPrefix(strings.TrimSpace(out.Page.RegionID), "#")
	out.Loader.Policy = strings.ToLower(strings.TrimSpace(out.Loader.Policy))
	if out.Loader.Policy == "" {
		out.Loader.Policy = PolicyLatestTriggered
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	// api
	if out.API.BaseURL == "" {
		res.addErr("api.base_url is required")
	} else if u, err := url.Parse(out.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("api.base_url must be an absolute URL, got %q", out.API.BaseURL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		res.addErr("api.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if out.API.TimeoutSeconds < 0 {
		res.addErr("api.timeout_seconds must be >= 0")
	}
	if out.API.RatePerSec < 0 {
		res.addErr("api.rate_per_sec must be >= 0")
	}
	if out.API.RatePerSec > 0 && out.API.Burst <= 0 {
		res.addErr("api.burst must be > 0 when api.rate_per_sec is set")
	}

	// page
	if out.Page.TriggerID == "" {
		res.addErr("page.trigger_id is required")
	}
	if out.Page.RegionID == "" {
		res.addErr("page.region_id is required")
	}
	if out.Page.TriggerID != "" && out.Page.TriggerID == out.Page.RegionID {
		res.addErr("page.trigger_id and page.region_id must differ")
	}

	if !out.Render.EscapeNames {
		res.addWarn("render.escape_names is false; employer names are inserted as raw markup.")
	}

	switch out.Loader.Policy {
	case PolicyLatestTriggered, PolicyLastResolved:
	default:
		res.addErr("loader.policy must be %q or %q, got %q", PolicyLatestTriggered, PolicyLastResolved, out.Loader.Policy)
	}

	if out.Refresh.IntervalSeconds < 0 {
		res.addErr("refresh.interval_seconds must be >= 0")
	} else if out.Refresh.IntervalSeconds > 0 && out.Refresh.IntervalSeconds < 5 {
		res.addWarn("refresh.interval_seconds is very low (%d) and will hammer the employers API.", out.Refresh.IntervalSeconds)
	}

	return out, res
}
