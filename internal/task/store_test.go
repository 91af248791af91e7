package task

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"todolite/backend"
	"todolite/backend/memory"
	"todolite/backend/sqlite"
	"todolite/internal/utils"
)

var fixedNow = time.Date(2024, 1, 31, 9, 30, 0, 0, time.Local)

func fixedClock() time.Time { return fixedNow }

// mustOpenStore opens a store over a fresh memory backend with a fixed
// clock and counter ids starting at 1.
func mustOpenStore(t *testing.T) (*Store, *memory.Backend, context.Context) {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	s, err := Open(ctx, mem, WithClock(fixedClock), WithIDGenerator(NewCounter(0)))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	return s, mem, ctx
}

// mustCreate creates a task and fails the test on error.
func mustCreate(t *testing.T, s *Store, ctx context.Context, d Draft) Task {
	t.Helper()
	created, err := s.Create(ctx, d)
	if err != nil {
		t.Fatalf("Create(%q) error: %v", d.Text, err)
	}
	return created
}

func TestCreateThenGet(t *testing.T) {
	s, _, ctx := mustOpenStore(t)

	created := mustCreate(t, s, ctx, Draft{
		Text:      "  buy milk ",
		Priority:  PriorityHigh,
		DueDate:   "2024-02-01",
		Tags:      []string{"home", " errands ", ""},
		Recurring: RecurWeekly,
	})

	got, ok := s.Get(created.ID)
	if !ok {
		t.Fatalf("Get(%d) found nothing", created.ID)
	}
	want := Task{
		ID:        created.ID,
		Text:      "buy milk",
		Completed: false,
		Priority:  PriorityHigh,
		DueDate:   "2024-02-01",
		Tags:      []string{"home", "errands"},
		Recurring: RecurWeekly,
		CreatedAt: FormatTimestamp(fixedNow),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestCreateDefaultsPriority(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	created := mustCreate(t, s, ctx, Draft{Text: "plain"})
	if created.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", created.Priority, PriorityMedium)
	}
	if created.Tags == nil {
		t.Error("Tags is nil, want empty slice")
	}
}

func TestCreateRejectsBlankText(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := s.Create(ctx, Draft{Text: text})
		if !errors.Is(err, utils.ErrValidation) {
			t.Errorf("Create(%q) error = %v, want ErrValidation", text, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
	if mem.Puts != 0 {
		t.Errorf("Puts = %d, want 0", mem.Puts)
	}
}

func TestCreateRejectsUnknownPriority(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	_, err := s.Create(ctx, Draft{Text: "x", Priority: "urgent"})
	if !utils.IsValidation(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestIDsAreUnique(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	// A clock that never moves still yields distinct ids.
	s, err := Open(ctx, mem, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	seen := map[int64]bool{}
	for i := 0; i < 20; i++ {
		created := mustCreate(t, s, ctx, Draft{Text: "t"})
		if seen[created.ID] {
			t.Fatalf("duplicate id %d", created.ID)
		}
		seen[created.ID] = true
	}
}

func TestToggleRecurringSpawnsNextOccurrence(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{
		Text:      "water plants",
		Priority:  PriorityLow,
		DueDate:   "2024-01-31",
		Tags:      []string{"home"},
		Recurring: RecurDaily,
	})

	toggled, spawned, err := s.ToggleComplete(ctx, orig.ID)
	if err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}
	if !toggled.Completed {
		t.Error("toggled task is not completed")
	}
	if spawned == nil {
		t.Fatal("no next occurrence spawned")
	}
	if spawned.DueDate != "2024-02-01" {
		t.Errorf("spawned DueDate = %q, want %q", spawned.DueDate, "2024-02-01")
	}
	if spawned.Completed {
		t.Error("spawned task is completed")
	}
	if spawned.ID == orig.ID {
		t.Error("spawned task reuses the original id")
	}
	if spawned.Text != orig.Text || spawned.Priority != orig.Priority || spawned.Recurring != orig.Recurring {
		t.Errorf("spawned = %+v, does not copy fields of %+v", spawned, orig)
	}
	if !reflect.DeepEqual(spawned.Tags, []string{"home"}) {
		t.Errorf("spawned Tags = %v, want [home]", spawned.Tags)
	}

	tasks := s.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("Len = %d, want 2", len(tasks))
	}
	if got, _ := s.Get(orig.ID); !got.Completed {
		t.Error("original task is not completed in the store")
	}
}

func TestSpawnedTagsAreIndependent(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{Text: "gym", Tags: []string{"health"}, Recurring: RecurWeekly})
	_, spawned, err := s.ToggleComplete(ctx, orig.ID)
	if err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}

	if _, err := s.Edit(ctx, spawned.ID, Draft{Text: "gym", Tags: []string{"sport"}, Recurring: RecurWeekly}); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	got, _ := s.Get(orig.ID)
	if !reflect.DeepEqual(got.Tags, []string{"health"}) {
		t.Errorf("original Tags = %v, want [health]", got.Tags)
	}
}

func TestToggleTwiceRestoresTask(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{Text: "one-off", DueDate: "2024-03-01"})

	for i := 0; i < 2; i++ {
		_, spawned, err := s.ToggleComplete(ctx, orig.ID)
		if err != nil {
			t.Fatalf("ToggleComplete #%d error: %v", i+1, err)
		}
		if spawned != nil {
			t.Errorf("ToggleComplete #%d spawned %+v for a non-recurring task", i+1, spawned)
		}
	}

	got, _ := s.Get(orig.ID)
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("after two toggles = %+v, want %+v", got, orig)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestReopenRecurringDoesNotSpawn(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{Text: "daily", Recurring: RecurDaily})
	if _, _, err := s.ToggleComplete(ctx, orig.ID); err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}
	_, spawned, err := s.ToggleComplete(ctx, orig.ID)
	if err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}
	if spawned != nil {
		t.Errorf("reopening spawned %+v", spawned)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestToggleUnknownID(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	_, _, err := s.ToggleComplete(ctx, 42)
	if !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEdit(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{Text: "draft", Tags: []string{"a"}})

	edited, err := s.Edit(ctx, orig.ID, Draft{Text: " final ", Priority: PriorityHigh, DueDate: "2024-05-05", Tags: []string{"b, c"}})
	if err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if edited.Text != "final" || edited.Priority != PriorityHigh || edited.DueDate != "2024-05-05" {
		t.Errorf("Edit = %+v", edited)
	}
	if !reflect.DeepEqual(edited.Tags, []string{"b", "c"}) {
		t.Errorf("Tags = %v, want [b c]", edited.Tags)
	}
	if edited.ID != orig.ID || edited.CreatedAt != orig.CreatedAt {
		t.Errorf("Edit changed identity: %+v", edited)
	}

	if _, err := s.Edit(ctx, orig.ID, Draft{Text: " "}); !utils.IsValidation(err) {
		t.Errorf("blank edit error = %v, want validation error", err)
	}
	if got, _ := s.Get(orig.ID); got.Text != "final" {
		t.Errorf("Text after rejected edit = %q, want %q", got.Text, "final")
	}
}

func TestDeleteAndClearCompleted(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	a := mustCreate(t, s, ctx, Draft{Text: "a"})
	b := mustCreate(t, s, ctx, Draft{Text: "b"})
	c := mustCreate(t, s, ctx, Draft{Text: "c"})

	if err := s.Delete(ctx, 999); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok := s.Get(a.ID); ok {
		t.Error("deleted task still present")
	}

	if _, _, err := s.ToggleComplete(ctx, b.ID); err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}
	n, err := s.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted error: %v", err)
	}
	if n != 1 {
		t.Errorf("ClearCompleted = %d, want 1", n)
	}
	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].ID != c.ID {
		t.Errorf("remaining = %+v, want only %d", tasks, c.ID)
	}
}

func TestSaveFailureLeavesStoreUnchanged(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	orig := mustCreate(t, s, ctx, Draft{Text: "keep"})
	before := s.Tasks()

	mem.FailPut = errors.New("disk full")
	if _, err := s.Create(ctx, Draft{Text: "lost"}); err == nil {
		t.Error("Create succeeded with a failing backend")
	}
	if _, _, err := s.ToggleComplete(ctx, orig.ID); err == nil {
		t.Error("ToggleComplete succeeded with a failing backend")
	}
	if _, err := s.Import(ctx, []byte(`[{"id":77,"text":"x"}]`)); err == nil {
		t.Error("Import succeeded with a failing backend")
	}

	if !reflect.DeepEqual(s.Tasks(), before) {
		t.Errorf("tasks = %+v, want %+v", s.Tasks(), before)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	created := mustCreate(t, s, ctx, Draft{Text: "survive", DueDate: "2024-02-02"})

	reopened, err := Open(ctx, mem)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	got, ok := reopened.Get(created.ID)
	if !ok {
		t.Fatal("task not persisted")
	}
	if !reflect.DeepEqual(got, created) {
		t.Errorf("reopened = %+v, want %+v", got, created)
	}
}

func TestStoredBlobFormat(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	mustCreate(t, s, ctx, Draft{Text: "nulls"})

	data, err := mem.Get(ctx, backend.DefaultTasksKey)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("stored blob is not a JSON array: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("stored %d tasks, want 1", len(raw))
	}
	for _, field := range []string{"dueDate", "recurring"} {
		if v, ok := raw[0][field]; !ok || v != nil {
			t.Errorf("%s = %v, want null", field, v)
		}
	}
	if tags, ok := raw[0]["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("tags = %v, want []", raw[0]["tags"])
	}
}

func TestCorruptBlobOpensEmpty(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	if err := mem.Put(ctx, backend.DefaultTasksKey, []byte("{not json")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	s, err := Open(ctx, mem)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestOpenRejectsBadKey(t *testing.T) {
	if _, err := Open(context.Background(), memory.New(), WithKey("../escape")); err == nil {
		t.Error("Open accepted a key with a path separator")
	}
}

func TestTagsAndStats(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	mustCreate(t, s, ctx, Draft{Text: "a", Tags: []string{"work", "urgent"}, DueDate: "2024-01-01"})
	b := mustCreate(t, s, ctx, Draft{Text: "b", Tags: []string{"home"}, DueDate: "2023-12-01"})
	mustCreate(t, s, ctx, Draft{Text: "c", Tags: []string{"work"}, DueDate: "2024-01-31"})
	if _, _, err := s.ToggleComplete(ctx, b.ID); err != nil {
		t.Fatalf("ToggleComplete error: %v", err)
	}

	if got, want := s.Tags(), []string{"home", "urgent", "work"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Tags = %v, want %v", got, want)
	}

	got := s.Stats("2024-01-31")
	want := Stats{Total: 3, Active: 2, Completed: 1, Overdue: 1}
	if got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
}

func TestDarkModePersists(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	if s.DarkMode() {
		t.Error("DarkMode is on by default")
	}
	if err := s.SetDarkMode(ctx, true); err != nil {
		t.Fatalf("SetDarkMode error: %v", err)
	}
	data, _ := mem.Get(ctx, backend.DarkModeKey)
	if string(data) != "true" {
		t.Errorf("stored theme = %q, want %q", data, "true")
	}
	reopened, _ := Open(ctx, mem)
	if !reopened.DarkMode() {
		t.Error("DarkMode not restored on open")
	}
}

func TestTasksReturnsCopies(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	created := mustCreate(t, s, ctx, Draft{Text: "x", Tags: []string{"a"}})
	tasks := s.Tasks()
	tasks[0].Text = "mutated"
	tasks[0].Tags[0] = "mutated"

	got, _ := s.Get(created.ID)
	if got.Text != "x" || got.Tags[0] != "a" {
		t.Errorf("store changed through returned slice: %+v", got)
	}
}

func TestReloadPicksUpExternalWrites(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	other, _ := Open(ctx, mem, WithIDGenerator(NewCounter(100)))
	mustCreate(t, other, ctx, Draft{Text: "from elsewhere"})

	if s.Len() != 0 {
		t.Fatalf("Len before reload = %d, want 0", s.Len())
	}
	s.Reload(ctx)
	if s.Len() != 1 {
		t.Errorf("Len after reload = %d, want 1", s.Len())
	}
}

func TestCreateDuringSaveFailureMessage(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	mem.FailPut = errors.New("quota exceeded")
	_, err := s.Create(ctx, Draft{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error = %v, want it to wrap the backend error", err)
	}
}

func TestDeleteTwiceIsNoOp(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	a := mustCreate(t, s, ctx, Draft{Text: "a"})
	b := mustCreate(t, s, ctx, Draft{Text: "b"})

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, a.ID); err != nil {
			t.Fatalf("Delete #%d error: %v", i+1, err)
		}
	}
	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].ID != b.ID {
		t.Errorf("remaining = %+v, want only %d", tasks, b.ID)
	}
}

func TestCreateAllSavesOnce(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	before := mem.Puts

	created, err := s.CreateAll(ctx, []Draft{{Text: " eggs "}, {Text: "bread", Tags: []string{"shop"}}})
	if err != nil {
		t.Fatalf("CreateAll error: %v", err)
	}
	if len(created) != 2 || created[0].Text != "eggs" || created[1].ID == created[0].ID {
		t.Errorf("unexpected tasks %+v", created)
	}
	if mem.Puts-before != 1 {
		t.Errorf("CreateAll wrote %d times, want 1", mem.Puts-before)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestCreateAllRejectsWholeBatch(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	mustCreate(t, s, ctx, Draft{Text: "existing"})
	before := mem.Puts

	_, err := s.CreateAll(ctx, []Draft{{Text: "ok"}, {Text: "  "}, {Text: "also ok"}})
	var de *DraftError
	if !errors.As(err, &de) || de.Index != 1 {
		t.Fatalf("error = %v, want a DraftError for item 1", err)
	}
	if !errors.Is(err, utils.ErrValidation) {
		t.Errorf("error %v should be a validation error", err)
	}
	if s.Len() != 1 || mem.Puts != before {
		t.Errorf("store changed: len=%d puts=%d", s.Len(), mem.Puts-before)
	}
}

func TestCreateAllSaveFailureAddsNothing(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	mustCreate(t, s, ctx, Draft{Text: "existing"})
	mem.FailPut = errors.New("disk full")

	if _, err := s.CreateAll(ctx, []Draft{{Text: "a"}, {Text: "b"}, {Text: "c"}}); err == nil {
		t.Fatal("expected the save error")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	mem.FailPut = nil
	reopened, _ := Open(ctx, mem)
	if reopened.Len() != 1 {
		t.Errorf("stored tasks = %d, want 1", reopened.Len())
	}
}

func TestReloadPicksUpThemeChange(t *testing.T) {
	s, mem, ctx := mustOpenStore(t)
	other, _ := Open(ctx, mem)
	if err := other.SetDarkMode(ctx, true); err != nil {
		t.Fatal(err)
	}

	s.Reload(ctx)
	if !s.DarkMode() {
		t.Error("Reload did not pick up the dark mode preference")
	}
}

func TestReloadIfChangedFollowsBackendVersion(t *testing.T) {
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	reader, _ := Open(ctx, db)
	writer, _ := Open(ctx, db, WithIDGenerator(NewCounter(100)))
	mustCreate(t, writer, ctx, Draft{Text: "x"})

	if !reader.ReloadIfChanged(ctx) || reader.Len() != 1 {
		t.Fatalf("expected a reload picking up x, len=%d", reader.Len())
	}
	if reader.ReloadIfChanged(ctx) {
		t.Error("reloaded although nothing was written")
	}

	mustCreate(t, writer, ctx, Draft{Text: "y"})
	if !reader.ReloadIfChanged(ctx) || reader.Len() != 2 {
		t.Errorf("expected a reload picking up y, len=%d", reader.Len())
	}
}

func TestReloadIfChangedWithoutVersions(t *testing.T) {
	s, _, ctx := mustOpenStore(t)
	if !s.ReloadIfChanged(ctx) {
		t.Error("a backend without versions should always reload")
	}
}
