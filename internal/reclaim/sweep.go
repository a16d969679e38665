package reclaim

import (
	"log/slog"
	"os/exec"
)

// NameSweeper kills lingering processes by command-line pattern, the way an
// operator would run pkill by hand. It is deliberately opt-in: pattern
// matching can hit unrelated processes, so the registry-based kill is always
// preferred and the sweeper only runs when explicitly enabled.
type NameSweeper struct {
	enabled  bool
	patterns []string
	logger   *slog.Logger
}

// NewNameSweeper creates a NameSweeper for the given command-line patterns
// (e.g. "chromedriver", "chrome"). When enabled is false Sweep is a no-op.
func NewNameSweeper(enabled bool, patterns []string, logger *slog.Logger) *NameSweeper {
	return &NameSweeper{
		enabled:  enabled,
		patterns: patterns,
		logger:   logger.With(slog.String("component", "reclaim")),
	}
}

// Sweep runs pkill -f for each pattern, best effort. pkill exiting non-zero
// just means nothing matched; real failures are logged and swallowed, since
// Sweep always executes during failure unwinding.
func (s *NameSweeper) Sweep() {
	if s == nil || !s.enabled {
		return
	}
	for _, pattern := range s.patterns {
		if pattern == "" {
			continue
		}
		s.logger.Warn("name-sweeping worker processes", slog.String("pattern", pattern))
		cmd := exec.Command("pkill", "-f", pattern)
		if err := cmd.Run(); err != nil {
			if _, isExit := err.(*exec.ExitError); !isExit {
				s.logger.Warn("name sweep failed",
					slog.String("pattern", pattern),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
