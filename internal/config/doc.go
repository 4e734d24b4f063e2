// Package config loads taskclock's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/taskclock/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//  5. TASKCLOCK_TOKEN and TASKCLOCK_API_URL override the file
//
// A file that exists but does not parse is an error; taskclock refuses to
// guess at a half-read token or API address.
//
// # Default Values
//
//   - api_url: http://127.0.0.1:5000/api
//   - state_dir: ~/.local/state/taskclock
//   - sync_seconds: 30 (active timer re-sync)
//   - refresh_seconds: 60 (task list poll)
//   - log_level: info
//   - archive_dsn: empty (session archive disabled)
//
// # Derived Paths
//
//   - StatePath(): <state_dir>/timerState.json, the persisted timer slot
//   - LogPath(): <state_dir>/taskclock.log, written while the board runs
//
// # Path Expansion
//
// Paths beginning with ~ are expanded to the user's home directory and made
// absolute. Values are trimmed of surrounding whitespace.
package config
