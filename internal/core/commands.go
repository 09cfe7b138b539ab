package core

import (
	"strings"

	"soulslink.ai/internal/protocol"
)

// ParseCommand splits a console line into its command name and the rest of
// the line. arg is empty when there is none.
func ParseCommand(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	name, arg, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(arg)
}

// HandleCommand runs a console command. It reports whether the command was
// recognized; usage problems are logged, never returned.
func (s *Session[S]) HandleCommand(name, arg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "!reconnect":
		s.reconnectLocked()
		return true
	case "!connect":
		if arg == "" {
			s.appendLog(UsageError(name, "!connect URL"))
			return true
		}
		if err := s.updateURLLocked(arg); err != nil {
			s.appendLog(protocol.Join(
				protocol.Colored("Failed to save config: ", protocol.ColorRed),
				protocol.Text(err.Error()),
			))
		}
		return true
	}

	if h, ok := s.game.(CommandHandler[S]); ok {
		return h.HandleCommand(&s.live, name, arg)
	}
	return false
}

// UsageError is the log line for a malformed command.
func UsageError(name, usage string) protocol.Print {
	return protocol.Join(
		protocol.Colored("Invalid "+name+".", protocol.ColorRed),
		protocol.Text(" Usage:\n"+usage),
	)
}
