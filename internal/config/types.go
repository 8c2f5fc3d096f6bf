package config

import "time"

type Config struct {
	V0APIKey     string
	V0BaseURL    string
	DatabaseURL  string
	RedisURL     string
	JWTSecret    string
	Environment  string
	Coordination Coordination
}

// tuning for the generation request coordinator. the defaults are
// product-tuned; every threshold is overridable through the environment.
type Coordination struct {
	// minimum gap between two admissions of the same request key
	Cooldown time.Duration

	// an in-progress lock older than this is treated as abandoned
	StaleCeiling time.Duration

	// hard ceiling for one generation call, streaming or not
	OverallTimeout time.Duration

	// abort a streaming read after this long without any bytes
	InactivityTimeout time.Duration
}
