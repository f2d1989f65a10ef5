// Package logging configures slog for silo: a JSON handler writing to a
// size-rotated file under ~/.silo/logs, optionally mirrored to stderr.
//
// The tool server must never write logs to stdout, which carries the
// protocol stream; ServerMode enforces that.
package logging
