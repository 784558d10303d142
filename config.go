package mcedia

import (
	"fmt"
	"strconv"
)

// Config is a point-in-time snapshot of the host configuration the core consumes. It is passed in
// at construction and re-read through a Provider only at well-defined points (a new resolve, a new
// decoder session), so one resolution or session never sees a half-updated configuration.
type Config struct {
	// MaxPlayers caps how many playback sessions can be active at once.
	MaxPlayers int
	// MaxNonLowOverheadPlayers is the number of sessions allowed to use the normal (deep)
	// buffering profile; sessions beyond it get the low-overhead profile.
	MaxNonLowOverheadPlayers int

	// Frame queue depths for the normal profile.
	VideoQueueDepth int
	AudioQueueDepth int
	// Frame queue depths for the low-overhead profile.
	LowOverheadVideoQueueDepth int
	LowOverheadAudioQueueDepth int

	// AllowDirectLinks enables the direct-link passthrough resolver.
	AllowDirectLinks bool
	// AllowEmbeddedPlayers enables third-party embedded player surfaces in the host.
	AllowEmbeddedPlayers bool

	// QualityCeiling is the highest quality id a resolver may pick (Bilibili qn code scale).
	QualityCeiling int
	// Cookie is an opaque auth cookie passed through to platforms that want one.
	Cookie string
}

// DefaultConfig matches the defaults the host ships with.
var DefaultConfig = Config{
	MaxPlayers:                 8,
	MaxNonLowOverheadPlayers:   2,
	VideoQueueDepth:            60,
	AudioQueueDepth:            120,
	LowOverheadVideoQueueDepth: 10,
	LowOverheadAudioQueueDepth: 60,
	AllowDirectLinks:           false,
	AllowEmbeddedPlayers:       true,
	QualityCeiling:             80,
}

// ConfigProvider yields the current configuration snapshot. Implementations must be safe for
// concurrent use.
type ConfigProvider interface {
	Current() Config
}

// StaticConfig is a ConfigProvider that always returns the same snapshot. Useful for tests and
// for hosts that rebuild the pipeline on configuration changes.
type StaticConfig Config

func (c StaticConfig) Current() Config {
	return Config(c)
}

// Setting is one entry in the statically declared configuration table: a name plus explicit
// accessors, instead of reflecting over Config fields at runtime.
type Setting struct {
	Name     string
	Get      func(*Config) string
	Set      func(*Config, string) error
	Validate func(string) error
}

func intSetting(name string, field func(*Config) *int, min int) Setting {
	validate := func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: not an integer: %q", name, s)
		}
		if n < min {
			return fmt.Errorf("%s: must be >= %d, got %d", name, min, n)
		}
		return nil
	}
	return Setting{
		Name:     name,
		Get:      func(c *Config) string { return strconv.Itoa(*field(c)) },
		Validate: validate,
		Set: func(c *Config, s string) error {
			if err := validate(s); err != nil {
				return err
			}
			*field(c), _ = strconv.Atoi(s)
			return nil
		},
	}
}

func boolSetting(name string, field func(*Config) *bool) Setting {
	validate := func(s string) error {
		if _, err := strconv.ParseBool(s); err != nil {
			return fmt.Errorf("%s: not a boolean: %q", name, s)
		}
		return nil
	}
	return Setting{
		Name:     name,
		Get:      func(c *Config) string { return strconv.FormatBool(*field(c)) },
		Validate: validate,
		Set: func(c *Config, s string) error {
			if err := validate(s); err != nil {
				return err
			}
			*field(c), _ = strconv.ParseBool(s)
			return nil
		},
	}
}

// Settings returns the configuration table in declaration order.
func Settings() []Setting {
	return []Setting{
		intSetting("max_players", func(c *Config) *int { return &c.MaxPlayers }, 1),
		intSetting("max_non_low_overhead_players", func(c *Config) *int { return &c.MaxNonLowOverheadPlayers }, 0),
		intSetting("video_queue_depth", func(c *Config) *int { return &c.VideoQueueDepth }, 1),
		intSetting("audio_queue_depth", func(c *Config) *int { return &c.AudioQueueDepth }, 1),
		intSetting("low_overhead_video_queue_depth", func(c *Config) *int { return &c.LowOverheadVideoQueueDepth }, 1),
		intSetting("low_overhead_audio_queue_depth", func(c *Config) *int { return &c.LowOverheadAudioQueueDepth }, 1),
		boolSetting("allow_direct_links", func(c *Config) *bool { return &c.AllowDirectLinks }),
		boolSetting("allow_embedded_players", func(c *Config) *bool { return &c.AllowEmbeddedPlayers }),
		intSetting("quality_ceiling", func(c *Config) *int { return &c.QualityCeiling }, 0),
		{
			Name:     "cookie",
			Get:      func(c *Config) string { return c.Cookie },
			Validate: func(string) error { return nil },
			Set: func(c *Config, s string) error {
				c.Cookie = s
				return nil
			},
		},
	}
}

// LookupSetting finds a Setting by name.
func LookupSetting(name string) (Setting, bool) {
	for _, s := range Settings() {
		if s.Name == name {
			return s, true
		}
	}
	return Setting{}, false
}
