package auto

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"swerve-auto-core/command"
	"swerve-auto-core/utils"
)

// ErrUnknownAuto is returned when selecting a name with no registered routine.
var ErrUnknownAuto = errors.New("unknown auto")

// Chooser is the operator-facing selection widget: named options, an optional
// default, and the operator's current selection. It is safe for concurrent use.
type Chooser struct {
	mu          sync.RWMutex
	options     map[string]command.Command
	defaultName string
	selected    string
}

func NewChooser() *Chooser {
	return &Chooser{options: map[string]command.Command{}}
}

// AddOption registers c under name and reports whether it replaced an option.
func (ch *Chooser) AddOption(name string, c command.Command) (replaced bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	_, replaced = ch.options[name]
	ch.options[name] = c
	return replaced
}

// SetDefaultOption registers c under name and makes it the default.
func (ch *Chooser) SetDefaultOption(name string, c command.Command) (replaced bool) {
	replaced = ch.AddOption(name, c)
	ch.mu.Lock()
	ch.defaultName = name
	ch.mu.Unlock()
	return replaced
}

// SetDefault makes the registered option name the default.
func (ch *Chooser) SetDefault(name string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if _, ok := ch.options[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownAuto, name)
	}
	ch.defaultName = name
	return nil
}

// Select records the operator's choice.
func (ch *Chooser) Select(name string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if _, ok := ch.options[name]; !ok {
		return fmt.Errorf("%w %q (available: %s)", ErrUnknownAuto, name, strings.Join(ch.namesLocked(), ", "))
	}
	ch.selected = name
	return nil
}

// Selected returns the selected option, else the default, else false.
func (ch *Chooser) Selected() (string, command.Command, bool) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	for _, name := range []string{ch.selected, ch.defaultName} {
		if name == "" {
			continue
		}
		if c, ok := ch.options[name]; ok {
			return name, c, true
		}
	}
	return "", nil, false
}

// Names lists the options alphabetically.
func (ch *Chooser) Names() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.namesLocked()
}

func (ch *Chooser) namesLocked() []string {
	names := lo.Keys(ch.options)
	slices.Sort(names)
	return names
}

// Default is the default option's name, if any.
func (ch *Chooser) Default() string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.defaultName
}

// WatchSelectionFile selects the name written to path each time the file
// changes, until ctx is done. The dashboard writes the file; an empty or
// unknown name is logged and ignored.
func (ch *Chooser) WatchSelectionFile(ctx context.Context, path string, log *utils.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("selection watcher: %w", err)
	}
	defer w.Close()

	// watch the directory so editors that replace the file are still seen
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	ch.readSelection(path, log)

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			ch.readSelection(path, log)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("selection watcher: %v", err)
		}
	}
}

func (ch *Chooser) readSelection(path string, log *utils.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("read selection %s: %v", path, err)
		}
		return
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return
	}
	if err := ch.Select(name); err != nil {
		log.Warn("selection file: %v", err)
		return
	}
	log.Info("auto selected: %s", name)
}
