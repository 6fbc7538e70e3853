// Package config provides configuration structures and utilities for codeflip.
// It defines the command-line options, the YAML project file that carries
// the dual view, scan, footnote and transformer settings, and the XDG
// locations of the cache database.
package config
