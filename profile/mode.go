package profile

// Mode is the build mode of a session.
type Mode int

const (
	NoOpt Mode = iota
	Debug
	Optimize
)

func (m Mode) String() string {
	switch m {
	case Optimize:
		return "optimize"
	case Debug:
		return "debug"
	}
	return "noopt"
}

// ResolveMode picks the mode for a session: optimize wins over debug, and
// debug wins over noopt.
func ResolveMode(optimize, debug bool) Mode {
	switch {
	case optimize:
		return Optimize
	case debug:
		return Debug
	}
	return NoOpt
}

// ModeFlags is the flag set a profile holds for one tool.
type ModeFlags struct {
	Base     []string `toml:"base"`
	Optimize []string `toml:"optimize"`
	Debug    []string `toml:"debug"`
	NoOpt    []string `toml:"noopt"`
}

// For returns only the flags of mode m.
func (f ModeFlags) For(m Mode) []string {
	switch m {
	case Optimize:
		return f.Optimize
	case Debug:
		return f.Debug
	}
	return f.NoOpt
}

// Compose returns base flags, then the flags of mode m, then extra, with
// empty entries dropped.
func (f ModeFlags) Compose(m Mode, extra ...string) []string {
	return NonEmpty(f.Base, f.For(m), extra)
}

// NonEmpty concatenates flag lists, dropping empty strings.
func NonEmpty(lists ...[]string) []string {
	result := []string{}
	for _, list := range lists {
		for _, flag := range list {
			if flag != "" {
				result = append(result, flag)
			}
		}
	}
	return result
}
