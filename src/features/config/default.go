package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// DefaultTOML is the file written by --gen-config.
const DefaultTOML = `# Default pew configuration file

# Path(s) to watch
path = ["./src"]

# Only files with these extensions trigger a restart.
# Defaults to the extensions of script_type.
# extensions = [".js", ".mjs"]

# Pattern for files to ignore, matched against the path relative to the watched directory
ignore_pattern = ".*\\.git.*"

# Type of script to run: go, lua, node, php, python, python2, rust, sh
script_type = "node"

# Entry point handed to the interpreter, defaults to the first path
# script = "./src/index.js"

# Additional arguments for the script (optional)
# script_args = ["--dev", "--watch"]

# Run this instead of script_type (optional)
# command = ["make", "run"]

# How often the watched paths are scanned
poll_interval = "1s"

# Changes closer together than this are handled with a single restart.
# "0s" restarts on the first change of a scan
debounce = "300ms"

# How long the process gets to exit before it is killed
graceful_timeout = "5s"

# What to do when a watched file is deleted: restart, ignore
on_delete = "restart"

# What to do when the process exits on its own: wait, restart, exit
on_crash = "wait"

# Retries when the command cannot be started
spawn_retries = 0

# Start a fresh run when this file changes
reload_config = false

# Verbose logging
verbose = false

[logger]
level = "info"
format = "text"

[status]
enabled = false
port = 3737

[history]
# SQLite file for process history, kept in memory when empty
path = ""
limit = 50
`

// GenerateDefault writes DefaultTOML to path. It refuses to overwrite an existing file.
func GenerateDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("config file already exists at %s", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(DefaultTOML); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	slog.Info("Default configuration file generated", "path", path)
	return nil
}
