package handlers

import "finitefield.org/storefront/internal/config"

// Analytics holds client instrumentation configuration surfaced to templates.
// The tag is only rendered once the visitor has accepted cookies.
type Analytics struct {
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
	Debug            bool
}

// AnalyticsFromConfig builds Analytics from the loaded configuration.
func AnalyticsFromConfig(cfg config.Config) Analytics {
	return Analytics{
		GA4MeasurementID: cfg.Analytics.GA4MeasurementID,
		Debug:            cfg.DevMode,
	}
}

// Enabled reports whether a measurement id is configured.
func (a Analytics) Enabled() bool { return a.GA4MeasurementID != "" }
