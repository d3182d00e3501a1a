package policies

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeu5/knight-rl/core"
)

// DefaultValue is the value of a state that was never written
const DefaultValue = 0.5

// Successor is a state that can produce the state an action leads to
// without being modified itself.
type Successor interface {
	core.State
	After(core.Action) (core.State, error)
}

// ValueTable maps canonical state keys to values in [0,1]. It is not safe
// for concurrent use.
type ValueTable struct {
	table map[string]float64

	// store the default on first read
	materialize bool
}

type TableOption func(*ValueTable)

// WithMaterializedDefaults makes reads of unseen keys store the default value
func WithMaterializedDefaults() TableOption {
	return func(t *ValueTable) {
		t.materialize = true
	}
}

func NewValueTable(opts ...TableOption) *ValueTable {
	t := &ValueTable{
		table: make(map[string]float64),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Get returns the value for key or DefaultValue when it was never set
func (t *ValueTable) Get(key string) float64 {
	val, ok := t.table[key]
	if !ok {
		if t.materialize {
			t.table[key] = DefaultValue
		}
		return DefaultValue
	}
	return val
}

func (t *ValueTable) Set(key string, val float64) {
	t.table[key] = val
}

func (t *ValueTable) Value(state core.State) float64 {
	return t.Get(state.Hash())
}

func (t *ValueTable) SetValue(state core.State, val float64) {
	t.Set(state.Hash(), val)
}

// Lookahead is the value of the state reached by taking action from state
func (t *ValueTable) Lookahead(state Successor, action core.Action) (float64, error) {
	next, err := state.After(action)
	if err != nil {
		return 0, err
	}
	return t.Value(next), nil
}

func (t *ValueTable) Has(key string) bool {
	_, ok := t.table[key]
	return ok
}

func (t *ValueTable) Size() int {
	return len(t.table)
}

// Entries returns a copy of every stored key and value
func (t *ValueTable) Entries() map[string]float64 {
	out := make(map[string]float64, len(t.table))
	for k, v := range t.table {
		out[k] = v
	}
	return out
}

// Load overwrites the stored values with entries
func (t *ValueTable) Load(entries map[string]float64) {
	for k, v := range entries {
		t.table[k] = v
	}
}

// DistinctValues counts the different values stored in the table
func (t *ValueTable) DistinctValues() int {
	seen := make(map[float64]struct{})
	for _, v := range t.table {
		seen[v] = struct{}{}
	}
	return len(seen)
}

type tableEntry struct {
	State string  `json:"state"`
	Value float64 `json:"value"`
}

// Read loads a table previously written by Record
func (t *ValueTable) Read(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry tableEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("error reading file contents: %w", err)
		}
		t.table[entry.State] = entry.Value
	}
	return scanner.Err()
}

// Record writes the table as JSON lines, one state per line, sorted by key
func (t *ValueTable) Record(path string) error {
	bs := new(bytes.Buffer)

	keys := make([]string, 0, len(t.table))
	for k := range t.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		entryBS, err := json.Marshal(tableEntry{State: k, Value: t.table[k]})
		if err != nil {
			return err
		}
		bs.Write(entryBS)
		bs.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, bs.Bytes(), 0644)
}
