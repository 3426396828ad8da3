package core

import (
	"strings"
	"sync"

	"github.com/spaghettifunk/instanced/engine/containers"
)

const MAX_CONSOLE_ENTRIES int = 64

type ConsoleEntry struct {
	Level  string
	Source string
	Text   string
}

// Console keeps the most recent log lines for an in-game overlay. It is an
// io.Writer so it can sit behind the charmbracelet logger, typically through
// an io.MultiWriter next to stderr.
type Console struct {
	mu      sync.Mutex
	source  string
	entries *containers.RingQueue[ConsoleEntry]
}

func NewConsole(source string, capacity int) *Console {
	if capacity <= 0 {
		capacity = MAX_CONSOLE_ENTRIES
	}
	return &Console{
		source:  source,
		entries: containers.NewRingQueue[ConsoleEntry](capacity),
	}
}

// Write stores every line of p. The logger emits one entry per call, so
// continuation lines of a multi-line message keep the entry's level.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := strings.Split(strings.TrimRight(string(p), "\n"), "\n")
	level := levelOf(lines[0])
	for _, line := range lines {
		if line == "" {
			continue
		}
		c.entries.Overwrite(ConsoleEntry{
			Level:  level,
			Source: c.source,
			Text:   line,
		})
	}
	return len(p), nil
}

// Entries returns the stored lines, oldest first.
func (c *Console) Entries() []ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Items()
}

// levelOf reads the level column of a text formatter line: the first field,
// or the second when a timestamp leads. Message text is never scanned.
func levelOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 1 && fields[0][0] >= '0' && fields[0][0] <= '9' {
		fields = fields[1:]
	}
	if len(fields) > 0 {
		switch fields[0] {
		case "DEBU", "INFO", "WARN", "ERRO", "FATA":
			return fields[0]
		}
	}
	return "INFO"
}
