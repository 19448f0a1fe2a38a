package config

import "flag"

// Flags holds command-line overrides registered on a FlagSet.
type Flags struct {
	fs *flag.FlagSet

	Config  string
	Debug   bool
	Workers int
	Images  bool
	Out     string
}

// RegisterFlags registers the shared import flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Workers, "workers", 0, "Primitives extracted in parallel (0 = one per CPU)")
	fs.BoolVar(&f.Images, "images", true, "Resolve image payloads")
	fs.StringVar(&f.Out, "out", "", "Directory for extracted images")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies flags the user actually set to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}

	set := make(map[string]bool)
	if f.fs != nil {
		f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	}

	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Workers > 0 {
		cfg.Import.Workers = f.Workers
	}
	if set["images"] {
		cfg.Import.LoadImages = f.Images
	}
	if f.Out != "" {
		cfg.Output.ImageDir = f.Out
	}
}
