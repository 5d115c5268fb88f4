/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-kvlru/log"
)

// RecordedEntry represents recorded entry which was logged.
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField tries to find field in logging entry by key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryRecorder struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter passes entries by value
func (er *entryRecorder) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.Fields...)
	fields = append(fields, e.DerivedFields...)

	er.mu.Lock()
	defer er.mu.Unlock()
	er.entries = append(er.entries, RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     fields,
		Level:      convertLogfLevelToLevel(e.Level),
		Time:       e.Time,
		Text:       e.Text,
	})
}

func (er *entryRecorder) filter(fn func(entry RecordedEntry) bool, limit int) []RecordedEntry {
	er.mu.RLock()
	defer er.mu.RUnlock()
	var found []RecordedEntry
	for _, entry := range er.entries {
		if fn(entry) {
			found = append(found, entry)
			if limit > 0 && len(found) == limit {
				break
			}
		}
	}
	return found
}

// Recorder is a log.FieldLogger that keeps every entry (debug level included) in memory
// so tests can assert on what was logged.
type Recorder struct {
	*log.LogfAdapter
	recorder *entryRecorder
}

// NewRecorder returns an initialized Recorder.
func NewRecorder() *Recorder {
	er := &entryRecorder{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, er)}, er}
}

// With returns a new Recorder with the given additional fields.
// Entries of both recorders are stored together.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.recorder}
}

// WithLevel returns a new Recorder with the given additional level check.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), r.recorder}
}

// Entries returns all recorded logging entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.recorder.filter(func(RecordedEntry) bool { return true }, 0)
}

// FindEntry tries to find recorded logging entry by message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(entry RecordedEntry) bool {
		return entry.Text == msg
	})
}

// FindEntryByFilter tries to find recorded logging entry by filter (callback).
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	if found := r.recorder.filter(filter, 1); len(found) != 0 {
		return found[0], true
	}
	return RecordedEntry{}, false
}

// FindAllEntriesByFilter returns all recorded logging entries matching the filter (callback).
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	return r.recorder.filter(filter, 0)
}

// Reset resets all recorded logs.
func (r *Recorder) Reset() {
	r.recorder.mu.Lock()
	r.recorder.entries = nil
	r.recorder.mu.Unlock()
}

func convertLogfLevelToLevel(value logf.Level) log.Level {
	switch value {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
