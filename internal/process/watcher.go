package process

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/hearth-core/internal/core"
	"github.com/nerrad567/hearth-core/internal/util"
)

// Domain is the entity domain owned by this package.
const Domain = "process"

// States a watched entity can take.
const (
	StateOn  = "on"
	StateOff = "off"
)

// scanSeconds are the wall-clock seconds a scheduled scan fires at.
var scanSeconds = []int{0, 30}

// psArgs lists every host process, wide output, including those without a
// controlling terminal.
var psArgs = []string{"ps", "awx"}

// Watcher mirrors the presence of host processes into the state store.
type Watcher struct {
	hub    *core.Hub
	logger core.Logger

	// entities maps process.<slug> to the ps substring it tracks.
	entities map[string]string

	// listProcesses is swapped out by tests.
	listProcesses func() ([]string, error)

	sub *core.Subscription
}

// New builds a watcher from name to substring watches. Names are slugified
// into entity object IDs, so "Mosquitto Broker" watches as
// process.mosquitto_broker.
func New(hub *core.Hub, watch map[string]string, logger core.Logger) *Watcher {
	if logger == nil {
		logger = noopLogger{}
	}

	entities := make(map[string]string, len(watch))
	for name, substring := range watch {
		entities[Domain+"."+util.Slugify(name)] = substring
	}

	return &Watcher{
		hub:           hub,
		logger:        logger,
		entities:      entities,
		listProcesses: listProcesses,
	}
}

// Start scans immediately, so entities exist before the first tick, then
// schedules scans on the hub's clock.
func (w *Watcher) Start() {
	w.update()
	w.sub = w.hub.TrackTimeChange(func(time.Time) { w.update() }, scanSeconds...)

	w.logger.Info("process watcher started", "entities", len(w.entities))
}

// Stop cancels the scheduled scans. Entity states remain at their last
// scanned value.
func (w *Watcher) Stop() {
	if w.sub != nil {
		w.hub.Bus.Unsubscribe(w.sub)
		w.sub = nil
	}
}

// EntityIDs returns the entity IDs owned by this watcher, sorted.
func (w *Watcher) EntityIDs() []string {
	ids := make([]string, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// update runs one scan and sets every watched entity. A failed scan keeps
// the previous states rather than reporting everything off.
func (w *Watcher) update() {
	lines, err := w.listProcesses()
	if err != nil {
		w.logger.Warn("process scan failed", "error", err.Error())
		return
	}

	for entityID, substring := range w.entities {
		state := StateOff
		if anyContains(lines, substring) {
			state = StateOn
		}
		w.hub.States.Set(entityID, state, nil)
	}
}

func anyContains(lines []string, substring string) bool {
	for _, line := range lines {
		if strings.Contains(line, substring) {
			return true
		}
	}
	return false
}

// listProcesses runs ps and returns its output lines.
func listProcesses() ([]string, error) {
	out, err := exec.Command(psArgs[0], psArgs[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", strings.Join(psArgs, " "), err)
	}
	return strings.Split(string(out), "\n"), nil
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
