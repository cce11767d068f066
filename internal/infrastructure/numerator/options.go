package numerator

import "bizdesk/internal/config"

// OptionsFromConfig translates the numbering section of the app config.
func OptionsFromConfig(cfg config.NumberingConfig) []Option {
	opts := []Option{
		WithDefaultConfig(cfg.Default),
		WithRetryPolicy(cfg.Retry.Policy()),
	}
	for key := range cfg.Sequences {
		opts = append(opts, WithConfig(key, cfg.SequenceConfig(key)))
	}
	return opts
}
