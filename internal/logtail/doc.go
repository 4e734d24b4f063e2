// Package logtail reads the tail of the taskclock log file.
//
// The board writes slog text records to <state_dir>/taskclock.log because
// the terminal belongs to the board while it runs. Read returns the last N
// lines in one pass with O(N) memory using a ring buffer. Filter drops
// records below a level, keeping multi-line records together, and Colorize
// highlights warnings and errors for terminal output.
//
// A missing log file is not an error: it simply has no lines.
package logtail
