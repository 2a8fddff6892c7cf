// Package diag collects grouped diagnostic messages and renders each group as
// a boxed block on the console and in a plain-text log file. It also persists
// per-page JSON artifacts (requests and validated responses) for audit.
//
// A Sink is an explicit dependency passed into the pipeline, scoped to one
// run. It is safe for concurrent use by the per-page tasks.
package diag

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	defaultBoxWidth = 80
	minBoxWidth     = 60
)

// ANSI color codes used for console boxes. File output is never colored.
var boxColors = []string{
	"\033[93m", // yellow
	"\033[92m", // green
	"\033[94m", // blue
	"\033[91m", // red
	"\033[95m", // magenta
	"\033[35m", // lilac
}

const (
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// Options configures a Sink. Zero values disable the corresponding output.
type Options struct {
	// Console receives colored boxed output; typically os.Stderr.
	Console io.Writer
	// LogDir, when set, receives a timestamped plain-text log file.
	LogDir string
	// ArtifactDir, when set, receives JSON artifacts via WriteArtifact.
	ArtifactDir string
	// BoxWidth forces the box width; values below 60 fall back to the default.
	BoxWidth int
}

// Sink accumulates labeled message groups and flushes them as boxed blocks.
type Sink struct {
	mu          sync.Mutex
	console     io.Writer
	file        *os.File
	boxWidth    int
	artifactDir string
	groups      map[string][]string
	rng         *rand.Rand
}

// New creates a Sink. When opts.LogDir is set the log file is created
// immediately so that permission problems surface at startup.
func New(opts Options) (*Sink, error) {
	width := opts.BoxWidth
	if width < minBoxWidth {
		width = defaultBoxWidth
	}

	s := &Sink{
		console:     opts.Console,
		boxWidth:    width,
		artifactDir: opts.ArtifactDir,
		groups:      make(map[string][]string),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("storitran_%s.log", time.Now().Format("2006-01-02_15-04-05"))
		file, err := os.Create(filepath.Join(opts.LogDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		s.file = file
		fmt.Fprintf(file, "Log started at: %s\n%s\n", time.Now().Format("2006-01-02 15:04:05"), strings.Repeat("=", 50))
	}

	if opts.ArtifactDir != "" {
		if err := os.MkdirAll(opts.ArtifactDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	return s, nil
}

// Infof writes a plain single-line message to the console and log file.
func (s *Sink) Infof(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf(format, args...)
	if s.console != nil {
		fmt.Fprintln(s.console, line)
	}
	if s.file != nil {
		fmt.Fprintln(s.file, line)
	}
}

// Add appends a message to the named group. Nothing is written until the
// group is flushed.
func (s *Sink) Add(group, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group] = append(s.groups[group], fmt.Sprintf(format, args...))
}

// Flush renders the group's accumulated messages inside a box and discards
// the group. Flushing an unknown group is a no-op.
func (s *Sink) Flush(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, ok := s.groups[group]
	if !ok {
		return
	}
	delete(s.groups, group)

	lines := s.wrapLines(messages)
	inner := s.boxWidth - 2
	top := "╔" + strings.Repeat("═", inner) + "╗"
	bottom := "╚" + strings.Repeat("═", inner) + "╝"

	var body strings.Builder
	for _, line := range lines {
		pad := inner - 2 - utf8.RuneCountInString(line)
		if pad < 0 {
			pad = 0
		}
		body.WriteString("║ " + line + strings.Repeat(" ", pad) + " ║\n")
	}

	if s.console != nil {
		color := boxColors[s.rng.Intn(len(boxColors))]
		fmt.Fprintf(s.console, "%s%s%s\n%s%s\n%s%s%s%s\n",
			ansiBold, group, ansiReset,
			color, top,
			body.String(), bottom, ansiReset, "")
	}
	if s.file != nil {
		fmt.Fprintf(s.file, "%s\n%s\n%s%s\n", group, top, body.String(), bottom)
	}
}

// wrapLines splits messages that exceed the box's inner width.
func (s *Sink) wrapLines(messages []string) []string {
	limit := s.boxWidth - 4
	var lines []string
	for _, msg := range messages {
		runes := []rune(msg)
		for len(runes) > limit {
			lines = append(lines, string(runes[:limit]))
			runes = runes[limit:]
		}
		lines = append(lines, string(runes))
	}
	return lines
}

// WriteArtifact persists a named JSON artifact to the artifact directory.
// It is a no-op when no artifact directory was configured.
func (s *Sink) WriteArtifact(name string, data []byte) error {
	if s.artifactDir == "" {
		return nil
	}
	if err := os.WriteFile(filepath.Join(s.artifactDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return nil
}

// Close flushes any remaining groups and closes the log file.
func (s *Sink) Close() error {
	s.mu.Lock()
	remaining := make([]string, 0, len(s.groups))
	for g := range s.groups {
		remaining = append(remaining, g)
	}
	s.mu.Unlock()

	for _, g := range remaining {
		s.Flush(g)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
