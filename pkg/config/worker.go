package config

import "time"

// WorkerConfig holds dispatch worker configuration.
type WorkerConfig struct {
	Enabled         bool `env:"EMAIL_WORKER_ENABLED" env-default:"true"`
	IntervalSeconds int  `env:"EMAIL_WORKER_INTERVAL_SECONDS" env-default:"5"`
}

// Interval returns the polling interval as a duration.
func (w WorkerConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}
