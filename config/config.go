// Package config parses the server's tuning knobs out of a Git-style
// INI file, the same dialect and library go-git itself uses for
// `.git/config`.
package config

import (
	"gitpack/giterr"

	"github.com/go-git/gcfg"
)

// ServerConfig mirrors the subset of real Git config keys that tune
// packing and transfer behavior: `[pack]` controls the writer/indexer,
// `[transfer]` controls upload-pack's object validation.
type ServerConfig struct {
	Pack struct {
		// Window is the delta-compression search window the Pack
		// Writer uses; 0 disables delta search entirely.
		Window int
		// Depth is the maximum delta chain depth the writer will
		// produce.
		Depth int
		// Threads bounds how many goroutines the writer's delta
		// search may use concurrently; 0 means "use GOMAXPROCS".
		Threads int
	}
	Transfer struct {
		// FsckObjects requires every object accepted by the indexer to
		// pass structural validation before the pack is committed.
		FsckObjects bool
	}
}

// Default returns the configuration real Git ships as its own
// built-in defaults.
func Default() ServerConfig {
	var c ServerConfig
	c.Pack.Window = 10
	c.Pack.Depth = 50
	c.Pack.Threads = 0
	c.Transfer.FsckObjects = false
	return c
}

// Parse reads INI-dialect config text (as produced by `git config -l`
// or a literal `.git/config` file) into a ServerConfig, starting from
// Default for any key the text doesn't set.
func Parse(text string) (ServerConfig, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(&cfg, text); err != nil {
		return ServerConfig{}, giterr.Wrap(giterr.KindInvalidFormat, "parsing server config: %v", err)
	}
	return cfg, nil
}
