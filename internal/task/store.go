package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"todolite/backend"
	"todolite/internal/utils"
)

// Store is the ordered task collection. Every mutation rewrites the whole
// collection to the backing BlobStore; if that write fails the in-memory
// state is left as it was before the call.
type Store struct {
	mu       sync.RWMutex
	blobs    backend.BlobStore
	key      string
	tasks    []Task
	darkMode bool
	// version is the backend's modification time of the loaded list, when
	// the backend records one.
	version time.Time

	now func() time.Time
	ids IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for createdAt, export timestamps and
// recurrence.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the default clock-based id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithKey sets the key the task list is stored under.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// Open loads the task list from blobs. A missing or unreadable blob yields
// an empty store; it is logged, never returned.
func Open(ctx context.Context, blobs backend.BlobStore, opts ...Option) (*Store, error) {
	s := &Store{
		blobs: blobs,
		key:   backend.DefaultTasksKey,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := backend.ValidateKey(s.key); err != nil {
		return nil, err
	}
	if s.ids == nil {
		s.ids = NewClockIDs(s.now)
	}

	s.version = s.storedVersion(ctx)
	s.tasks = s.load(ctx)
	s.darkMode = s.loadDarkMode(ctx)
	return s, nil
}

// load reads and decodes the task blob, falling back to an empty list.
func (s *Store) load(ctx context.Context) []Task {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, backend.ErrNotFound) {
		utils.Debugf("no stored tasks under %q, starting empty", s.key)
		return []Task{}
	}
	if err != nil {
		utils.Debugf("failed to read stored tasks, starting empty: %v", err)
		return []Task{}
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		utils.Debugf("stored tasks are not valid JSON, starting empty: %v", err)
		return []Task{}
	}
	for i := range tasks {
		if tasks[i].Tags == nil {
			tasks[i].Tags = []string{}
		}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	utils.Debugf("loaded %d tasks", len(tasks))
	return tasks
}

func (s *Store) loadDarkMode(ctx context.Context) bool {
	data, err := s.blobs.Get(ctx, backend.DarkModeKey)
	return err == nil && string(data) == "true"
}

// Reload replaces the in-memory list and theme preference with the stored
// ones, picking up writes made by other processes.
func (s *Store) Reload(ctx context.Context) {
	version := s.storedVersion(ctx)
	tasks := s.load(ctx)
	dark := s.loadDarkMode(ctx)
	s.mu.Lock()
	s.tasks = tasks
	s.darkMode = dark
	s.version = version
	s.mu.Unlock()
}

// ReloadIfChanged reloads only when the backend reports a newer write of
// the task list than the one loaded. Backends that keep no modification
// time are always reloaded. It reports whether a reload happened.
func (s *Store) ReloadIfChanged(ctx context.Context) bool {
	if _, ok := s.blobs.(backend.Versioned); ok {
		version := s.storedVersion(ctx)
		s.mu.RLock()
		same := !version.IsZero() && version.Equal(s.version)
		s.mu.RUnlock()
		if same {
			return false
		}
	}
	s.Reload(ctx)
	return true
}

// storedVersion returns the backend's modification time of the task list,
// or the zero time when unknown.
func (s *Store) storedVersion(ctx context.Context) time.Time {
	v, ok := s.blobs.(backend.Versioned)
	if !ok {
		return time.Time{}
	}
	t, err := v.Modified(ctx, s.key)
	if err != nil {
		return time.Time{}
	}
	return t
}

// mutate applies fn to a copy of the task list, persists the result and
// commits it only if the write succeeded.
func (s *Store) mutate(ctx context.Context, fn func(tasks []Task) ([]Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		next[i] = t.Clone()
	}

	next, err := fn(next)
	if err != nil {
		return err
	}
	if next == nil {
		next = []Task{}
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}

	s.tasks = next
	return nil
}

// newID returns a generator id not already used in tasks.
func (s *Store) newID(tasks []Task) int64 {
	used := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		used[t.ID] = true
	}
	for {
		id := s.ids.NextID()
		if id != 0 && !used[id] {
			return id
		}
	}
}

func indexOf(tasks []Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Create appends a new open task built from d.
func (s *Store) Create(ctx context.Context, d Draft) (Task, error) {
	if err := d.normalize(); err != nil {
		return Task{}, err
	}

	var created Task
	err := s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		created = Task{
			ID:        s.newID(tasks),
			Text:      d.Text,
			Completed: false,
			Priority:  d.Priority,
			DueDate:   d.DueDate,
			Tags:      d.Tags,
			Recurring: d.Recurring,
			CreatedAt: FormatTimestamp(s.now()),
		}
		return append(tasks, created), nil
	})
	if err != nil {
		return Task{}, err
	}
	utils.Debugf("created task %d", created.ID)
	return created.Clone(), nil
}

// DraftError reports which draft of a CreateAll batch was rejected.
type DraftError struct {
	Index int
	Err   error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index+1, e.Err)
}

func (e *DraftError) Unwrap() error { return e.Err }

// CreateAll appends one open task per draft and saves them in a single
// write. Every draft is validated first; a rejected draft or a failed
// save adds nothing.
func (s *Store) CreateAll(ctx context.Context, drafts []Draft) ([]Task, error) {
	for i := range drafts {
		if err := drafts[i].normalize(); err != nil {
			return nil, &DraftError{Index: i, Err: err}
		}
	}
	if len(drafts) == 0 {
		return []Task{}, nil
	}

	created := make([]Task, 0, len(drafts))
	err := s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		for _, d := range drafts {
			t := Task{
				ID:        s.newID(tasks),
				Text:      d.Text,
				Priority:  d.Priority,
				DueDate:   d.DueDate,
				Tags:      d.Tags,
				Recurring: d.Recurring,
				CreatedAt: FormatTimestamp(s.now()),
			}
			tasks = append(tasks, t)
			created = append(created, t.Clone())
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	utils.Debugf("created %d tasks", len(created))
	return created, nil
}

// Delete removes the task with id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		if i := indexOf(tasks, id); i >= 0 {
			tasks = append(tasks[:i], tasks[i+1:]...)
		}
		return tasks, nil
	})
}

// ToggleComplete flips the completed flag of task id. Completing a
// recurring task appends its next occurrence, which is returned as the
// second value (nil otherwise). Reopening never spawns.
func (s *Store) ToggleComplete(ctx context.Context, id int64) (Task, *Task, error) {
	var toggled Task
	var spawned *Task
	err := s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, utils.ErrTaskNotFound(id)
		}
		tasks[i].Completed = !tasks[i].Completed
		toggled = tasks[i]

		if toggled.Completed && toggled.Recurring != RecurNone {
			next := NextOccurrence(toggled, s.newID(tasks), s.now())
			tasks = append(tasks, next)
			spawned = &next
		}
		return tasks, nil
	})
	if err != nil {
		return Task{}, nil, err
	}
	if spawned != nil {
		utils.Debugf("task %d repeats %s, created task %d due %s", id, toggled.Recurring, spawned.ID, spawned.DueDate)
		c := spawned.Clone()
		spawned = &c
	}
	return toggled.Clone(), spawned, nil
}

// Edit overwrites the editable fields of task id with d.
func (s *Store) Edit(ctx context.Context, id int64, d Draft) (Task, error) {
	if err := d.normalize(); err != nil {
		return Task{}, err
	}

	var edited Task
	err := s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, utils.ErrTaskNotFound(id)
		}
		tasks[i].Text = d.Text
		tasks[i].Priority = d.Priority
		tasks[i].DueDate = d.DueDate
		tasks[i].Tags = d.Tags
		tasks[i].Recurring = d.Recurring
		edited = tasks[i]
		return tasks, nil
	})
	if err != nil {
		return Task{}, err
	}
	return edited.Clone(), nil
}

// ClearCompleted removes every completed task and returns how many went.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.Completed {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Get returns a copy of task id.
func (s *Store) Get(id int64) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return Task{}, false
}

// Tasks returns a copy of the collection in stored order.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Tags returns every tag in use, sorted and without repeats.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	tags := []string{}
	for _, t := range s.tasks {
		for _, tag := range t.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Stats holds the collection counters shown above the list.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

// Stats counts tasks. Overdue counts open tasks due before today.
func (s *Store) Stats(today Date) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, t := range s.tasks {
		st.Total++
		if t.Completed {
			st.Completed++
			continue
		}
		st.Active++
		if !t.DueDate.IsZero() && t.DueDate.Before(today) {
			st.Overdue++
		}
	}
	return st
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// DarkMode reports the stored theme preference.
func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

// SetDarkMode persists the theme preference.
func (s *Store) SetDarkMode(ctx context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value := "false"
	if on {
		value = "true"
	}
	if err := s.blobs.Put(ctx, backend.DarkModeKey, []byte(value)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	s.darkMode = on
	return nil
}
