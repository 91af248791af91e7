package task_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"todolite/internal/task"
	"todolite/internal/testutil"
)

// =============================================================================
// Task command CLI tests: add, list, done, edit, rm, clear, tags, stats,
// import and export against the file backend.
// =============================================================================

type actionJSON struct {
	Action  string     `json:"action"`
	Task    task.Task  `json:"task"`
	Spawned *task.Task `json:"spawned"`
	Result  string     `json:"result"`
}

type listJSON struct {
	Tasks  []task.Task `json:"tasks"`
	View   string      `json:"view"`
	Count  int         `json:"count"`
	Total  int         `json:"total"`
	Result string      `json:"result"`
}

// addTask adds a task and returns it as stored.
func addTask(t *testing.T, cli *testutil.CLITest, args ...string) task.Task {
	t.Helper()
	stdout := cli.MustExecute(append([]string{"add", "--json"}, args...)...)
	var resp actionJSON
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid add response %q: %v", stdout, err)
	}
	return resp.Task
}

func listTasks(t *testing.T, cli *testutil.CLITest, args ...string) listJSON {
	t.Helper()
	stdout := cli.MustExecute(append([]string{"list", "--json"}, args...)...)
	var resp listJSON
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid list response %q: %v", stdout, err)
	}
	return resp
}

func texts(tasks []task.Task) string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.Text
	}
	return strings.Join(out, ",")
}

func id(tk task.Task) string {
	return strconv.FormatInt(tk.ID, 10)
}

// --- add ---

func TestAddTaskCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("add", "Buy", "milk", "-p", "high", "--due", "tomorrow", "--tag", "shop,home", "--repeat", "weekly")

	testutil.AssertContains(t, stdout, "Created task")
	testutil.AssertContains(t, stdout, "Buy milk (high, due tomorrow, repeats weekly) #shop #home")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)
}

func TestAddTaskPersistsToFileCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	created := addTask(t, cli, "Persisted")

	data, err := os.ReadFile(filepath.Join(cli.DataDir(), "todoLiteTasks.json"))
	if err != nil {
		t.Fatalf("expected task file: %v", err)
	}
	var stored []task.Task
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("task file is not a JSON array: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != created.ID || stored[0].Priority != task.PriorityMedium {
		t.Errorf("unexpected stored tasks %+v", stored)
	}
	if created.ID != testutil.FixedNow().UnixMilli() {
		t.Errorf("expected clock-based id %d, got %d", testutil.FixedNow().UnixMilli(), created.ID)
	}
}

func TestAddRejectsInvalidInputCLI(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"blank text", []string{"add", "   "}, "Please enter a task!"},
		{"priority", []string{"add", "x", "-p", "urgent"}, "invalid priority"},
		{"due date", []string{"add", "x", "--due", "someday"}, "invalid date"},
		{"repeat", []string{"add", "x", "--repeat", "hourly"}, "invalid repeat interval"},
		{"no text without prompts", []string{"add"}, "task text cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := testutil.NewCLITest(t)
			stdout, stderr := cli.ExecuteAndFail(tt.args...)
			testutil.AssertContains(t, stderr, tt.want)
			testutil.AssertResultCode(t, stdout, testutil.ResultError)

			if got := listTasks(t, cli); got.Total != 0 {
				t.Errorf("rejected add stored %d task(s)", got.Total)
			}
		})
	}
}

func TestAddInteractiveCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetInteractive("Water plants\nlow\n+2d\ngarden\n\n")

	stdout := cli.MustExecute("add")

	testutil.AssertContains(t, stdout, "Task (required): ")
	testutil.AssertContains(t, stdout, "Water plants (low, due in 2 days) #garden")
	testutil.AssertNotContains(t, stdout, testutil.ResultActionCompleted)
}

// --- list ---

func TestListEmptyStatesCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks yet. Add one above!")
	testutil.AssertResultCode(t, stdout, testutil.ResultInfoOnly)

	addTask(t, cli, "Open task")
	stdout = cli.MustExecute("list", "--status", "completed")
	testutil.AssertContains(t, stdout, "No tasks match your filters.")
}

func TestListShowsTaskFieldsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Pay rent", "--due", "2024-01-29", "-p", "high")
	addTask(t, cli, "Call mom", "--due", "today", "--tag", "family")

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "[ ] (high)   Pay rent !Overdue by 2 days")
	testutil.AssertContains(t, stdout, "Call mom · Due today #family")
}

func TestListFiltersAndSortsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "banana", "-p", "low", "--tag", "shop")
	addTask(t, cli, "Apple", "-p", "high", "--due", "2024-02-10")
	addTask(t, cli, "cherry", "--due", "2024-02-01", "--tag", "shop")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"newest first by default", nil, "cherry,Apple,banana"},
		{"by priority", []string{"--sort", "priority"}, "Apple,cherry,banana"},
		{"by due date", []string{"--sort", "due"}, "cherry,Apple,banana"},
		{"by name", []string{"--sort", "name"}, "Apple,banana,cherry"},
		{"search", []string{"--search", "AN"}, "banana"},
		{"search matches tags", []string{"--search", "sho"}, "cherry,banana"},
		{"tag", []string{"--tag", "shop", "--sort", "name"}, "banana,cherry"},
		{"priority", []string{"-p", "high"}, "Apple"},
		{"today view", []string{"--view", "today"}, "cherry,Apple,banana"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listTasks(t, cli, tt.args...)
			if texts(got.Tasks) != tt.want {
				t.Errorf("got %s, want %s", texts(got.Tasks), tt.want)
			}
			if got.Total != 3 || got.Count != len(got.Tasks) || got.Result != testutil.ResultInfoOnly {
				t.Errorf("unexpected counters %+v", got)
			}
		})
	}
}

func TestListRejectsBadFlagValuesCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	for _, args := range [][]string{
		{"list", "--sort", "size"},
		{"list", "--status", "pending"},
		{"list", "-p", "urgent"},
		{"list", "--view", "nope"},
	} {
		_, stderr := cli.ExecuteAndFail(args...)
		testutil.AssertContains(t, stderr, "Suggestion:")
	}
}

func TestListUsesConfiguredDefaultSortCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetFullConfig("storage:\n  backend: file\nui:\n  default_sort: name\n  locale: en\n")
	addTask(t, cli, "b")
	addTask(t, cli, "a")
	addTask(t, cli, "C")

	if got := texts(listTasks(t, cli).Tasks); got != "a,b,C" {
		t.Errorf("got %s, want a,b,C", got)
	}
	// A view with its own sort keeps it; without due dates the stored
	// order is left as is.
	if got := texts(listTasks(t, cli, "--view", "today").Tasks); got != "b,a,C" {
		t.Errorf("today view got %s, want b,a,C", got)
	}
}

// --- done ---

func TestDoneRecurringSpawnsNextCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	daily := addTask(t, cli, "Stretch", "--due", "today", "--repeat", "daily", "--tag", "health")

	stdout := cli.MustExecute("done", id(daily))
	testutil.AssertContains(t, stdout, "Completed task "+id(daily)+": Stretch")
	testutil.AssertContains(t, stdout, "due 2024-02-01")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	all := listTasks(t, cli)
	if all.Total != 2 {
		t.Fatalf("expected the next occurrence to be added, got %+v", all.Tasks)
	}
	next := all.Tasks[0]
	if next.Completed || next.Text != "Stretch" || next.DueDate != task.MustDate("2024-02-01") || next.Recurring != task.RecurDaily {
		t.Errorf("unexpected next occurrence %+v", next)
	}

	// Reopening does not spawn again.
	stdout = cli.MustExecute("done", id(daily))
	testutil.AssertContains(t, stdout, "Reopened task")
	testutil.AssertNotContains(t, stdout, "Next occurrence")
	if got := listTasks(t, cli).Total; got != 2 {
		t.Errorf("expected 2 tasks after reopening, got %d", got)
	}
}

func TestDoneJSONCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	monthly := addTask(t, cli, "Pay rent", "--due", "2024-01-31", "--repeat", "monthly")

	stdout := cli.MustExecute("done", id(monthly), "--json")
	var resp actionJSON
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid response %q: %v", stdout, err)
	}
	if resp.Action != "complete" || !resp.Task.Completed || resp.Spawned == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Spawned.DueDate != task.MustDate("2024-03-02") {
		t.Errorf("expected Jan 31 + 1 month to normalise to 2024-03-02, got %s", resp.Spawned.DueDate)
	}
}

func TestDoneInteractiveSelectionCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Buy milk")
	addTask(t, cli, "Walk dog")

	cli.SetInteractive("milk\n")
	stdout := cli.MustExecute("done")
	testutil.AssertContains(t, stdout, "Auto-selected: Buy milk")
	testutil.AssertContains(t, stdout, "Completed task")

	if got := texts(listTasks(t, cli, "--status", "completed").Tasks); got != "Buy milk" {
		t.Errorf("completed = %s, want Buy milk", got)
	}
}

func TestDoneWithoutIDInNoPromptModeCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Something")

	_, stderr := cli.ExecuteAndFail("done")
	testutil.AssertContains(t, stderr, "task id is required")
}

// --- edit ---

func TestEditKeepsUnchangedFieldsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	orig := addTask(t, cli, "Draft report", "-p", "high", "--due", "+3d", "--tag", "work", "--repeat", "weekly")

	stdout := cli.MustExecute("edit", id(orig), "--text", "Final report", "--due", "")
	testutil.AssertContains(t, stdout, "Updated task "+id(orig)+": Final report (high, repeats weekly) #work")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	got := listTasks(t, cli).Tasks[0]
	if got.ID != orig.ID || !got.DueDate.IsZero() || got.Priority != task.PriorityHigh || got.CreatedAt != orig.CreatedAt {
		t.Errorf("unexpected task after edit %+v", got)
	}

	cli.MustExecute("edit", id(orig), "--repeat", "", "--tag", "")
	got = listTasks(t, cli).Tasks[0]
	if got.Recurring != task.RecurNone || len(got.Tags) != 0 {
		t.Errorf("expected repeat and tags cleared, got %+v", got)
	}
}

func TestEditErrorsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	orig := addTask(t, cli, "Keep me")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no changes", []string{"edit", id(orig)}, "nothing to change"},
		{"blank text", []string{"edit", id(orig), "--text", "  "}, "task text cannot be empty"},
		{"unknown id", []string{"edit", "12345", "--text", "x"}, "task 12345"},
		{"bad id", []string{"edit", "abc", "--text", "x"}, "invalid task id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr := cli.ExecuteAndFail(tt.args...)
			testutil.AssertContains(t, stderr, tt.want)
		})
	}

	if got := listTasks(t, cli).Tasks[0].Text; got != "Keep me" {
		t.Errorf("failed edits changed the task to %q", got)
	}
}

// --- rm and clear ---

func TestRmCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	doomed := addTask(t, cli, "Doomed")
	addTask(t, cli, "Survivor")

	stdout := cli.MustExecute("rm", id(doomed))
	testutil.AssertContains(t, stdout, "Deleted task "+id(doomed)+": Doomed")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	stdout = cli.MustExecute("rm", id(doomed))
	testutil.AssertContains(t, stdout, "nothing deleted")
	testutil.AssertResultCode(t, stdout, testutil.ResultInfoOnly)

	if got := texts(listTasks(t, cli).Tasks); got != "Survivor" {
		t.Errorf("remaining = %s, want Survivor", got)
	}
}

func TestClearCompletedCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)

	stdout := cli.MustExecute("clear")
	testutil.AssertContains(t, stdout, "No completed tasks to clear.")

	a := addTask(t, cli, "Done already")
	addTask(t, cli, "Still open")
	cli.MustExecute("done", id(a))

	stdout = cli.MustExecute("clear")
	testutil.AssertContains(t, stdout, "Cleared 1 completed task(s).")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	if got := texts(listTasks(t, cli).Tasks); got != "Still open" {
		t.Errorf("remaining = %s, want Still open", got)
	}
}

func TestClearAsksForConfirmationCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	a := addTask(t, cli, "Done already")
	cli.MustExecute("done", id(a))

	cli.SetInteractive("n\n")
	stdout := cli.MustExecute("clear")
	testutil.AssertContains(t, stdout, "Delete 1 completed task(s)? [y/N]: ")
	testutil.AssertContains(t, stdout, "Cancelled.")
	if got := listTasks(t, cli).Total; got != 1 {
		t.Errorf("declined clear removed tasks, %d left", got)
	}

	cli.SetStdin("y\n")
	stdout = cli.MustExecute("clear")
	testutil.AssertContains(t, stdout, "Cleared 1 completed task(s).")
}

// --- tags and stats ---

func TestTagsAndStatsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "a", "--tag", "work,home")
	b := addTask(t, cli, "b", "--tag", "errand", "--due", "yesterday")
	addTask(t, cli, "c", "--due", "2024-01-01")
	cli.MustExecute("done", id(b))

	stdout := cli.MustExecute("tags")
	if !strings.Contains(stdout, "#errand\n#home\n#work\n") {
		t.Errorf("expected sorted tags, got:\n%s", stdout)
	}

	stdout = cli.MustExecute("stats")
	for _, want := range []string{"Total:     3", "Active:    2", "Completed: 1", "Overdue:   1"} {
		testutil.AssertContains(t, stdout, want)
	}

	stdout = cli.MustExecute("stats", "--json")
	var st task.Stats
	if err := json.Unmarshal([]byte(stdout), &st); err != nil {
		t.Fatalf("invalid stats JSON %q: %v", stdout, err)
	}
	if st != (task.Stats{Total: 3, Active: 2, Completed: 1, Overdue: 1}) {
		t.Errorf("unexpected stats %+v", st)
	}
}

// --- import and export ---

func TestExportThenImportCLI(t *testing.T) {
	src := testutil.NewCLITest(t)
	addTask(t, src, "First", "--tag", "x")
	addTask(t, src, "Second", "--repeat", "weekly", "--due", "2024-02-05")

	exportPath := filepath.Join(src.TmpDir(), "backup.json")
	stdout := src.MustExecute("export", "--output", exportPath)
	testutil.AssertContains(t, stdout, "Exported 2 task(s) to "+exportPath)

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	var snap task.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("export is not a snapshot: %v", err)
	}
	if snap.Version != "2.0" || len(snap.Tasks) != 2 || snap.ExportedAt != task.FormatTimestamp(testutil.FixedNow()) {
		t.Errorf("unexpected snapshot header %+v", snap)
	}
	if !strings.Contains(string(data), "\n  \"tasks\": [") {
		t.Error("export should be indented with two spaces")
	}

	dst := testutil.NewCLITest(t)
	addTask(t, dst, "Already here")

	stdout = dst.MustExecute("import", exportPath)
	testutil.AssertContains(t, stdout, "Imported 2 new task(s).")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	stdout = dst.MustExecute("import", exportPath)
	testutil.AssertContains(t, stdout, "Imported 0 new task(s).")

	if got := listTasks(t, dst).Total; got != 3 {
		t.Errorf("expected 3 tasks after merging, got %d", got)
	}
}

func TestExportToStdoutCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Only")

	stdout := cli.MustExecute("export", "-o", "-")
	var snap task.Snapshot
	if err := json.Unmarshal([]byte(stdout), &snap); err != nil {
		t.Fatalf("stdout export is not a snapshot %q: %v", stdout, err)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Text != "Only" {
		t.Errorf("unexpected tasks %+v", snap.Tasks)
	}
}

func TestExportPDFCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Print me", "--due", "today")
	done := addTask(t, cli, "Hidden")
	cli.MustExecute("done", id(done))

	out := filepath.Join(cli.TmpDir(), "list.pdf")
	stdout := cli.MustExecute("export", "--pdf", "--view", "active", "-o", out)
	testutil.AssertContains(t, stdout, "Exported 1 task(s) to "+out)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("expected a PDF, got %q", string(data[:8]))
	}
}

func TestImportFromStdinCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.SetStdin(`[{"id": "7", "text": "From a bare array"}, {"id": 8, "text": "Second", "priority": "high"}]`)

	stdout := cli.MustExecute("import", "-")
	testutil.AssertContains(t, stdout, "Imported 2 new task(s).")

	got := listTasks(t, cli, "--sort", "priority").Tasks
	if len(got) != 2 || got[0].ID != 8 || got[1].ID != 7 || got[1].Priority != task.PriorityMedium {
		t.Errorf("unexpected imported tasks %+v", got)
	}
}

func TestImportRejectsBadFilesCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	addTask(t, cli, "Untouched")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"not json", "this is not json", "invalid file format"},
		{"wrong shape", `{"items": []}`, "invalid file format"},
		{"missing text", `[{"id": 1, "text": "ok"}, {"id": 2}]`, "invalid task data in file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := cli.WriteFile(strings.ReplaceAll(tt.name, " ", "_")+".json", tt.content)
			_, stderr := cli.ExecuteAndFail("import", path)
			testutil.AssertContains(t, stderr, tt.want)
		})
	}

	if got := texts(listTasks(t, cli).Tasks); got != "Untouched" {
		t.Errorf("failed imports changed the store: %s", got)
	}

	_, stderr := cli.ExecuteAndFail("import", filepath.Join(cli.TmpDir(), "missing.json"))
	testutil.AssertContains(t, stderr, "failed to read import file")
}
