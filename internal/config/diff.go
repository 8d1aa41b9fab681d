package config

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PracticeChanged is set when the session defaults changed. They apply to
	// sessions opened after the reload.
	PracticeChanged bool
	NewPractice     PracticeConfig

	// RestartRequired names the sections that changed but are only read at
	// start-up.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.PracticeChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !practiceEqual(old.Practice, new.Practice) {
		d.PracticeChanged = true
		d.NewPractice = new.Practice
	}

	if old.Server.ListenAddr != new.Server.ListenAddr || !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if old.Library != new.Library {
		d.RestartRequired = append(d.RestartRequired, "library")
	}
	if old.Store != new.Store {
		d.RestartRequired = append(d.RestartRequired, "store")
	}
	if old.Telemetry.ServiceName != new.Telemetry.ServiceName || old.Telemetry.Metrics() != new.Telemetry.Metrics() {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}
	return d
}

func practiceEqual(a, b PracticeConfig) bool {
	return a.Mode == b.Mode &&
		a.Dots() == b.Dots() &&
		a.ShowLine == b.ShowLine &&
		a.Delay() == b.Delay() &&
		a.Prompt == b.Prompt
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
