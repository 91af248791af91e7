package markdown_test

import (
	"os"
	"path/filepath"
	"testing"

	"todolite/internal/testutil"
)

func TestExportMarkdownCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Pay rent", "-p", "high", "--due", "2024-02-01", "--repeat", "monthly", "--tag", "bills")
	cli.MustExecute("add", "Buy milk")

	stdout := cli.MustExecute("export", "--markdown", "--sort", "name", "-o", "-")

	want := "# TodoLite\n\n- [ ] Buy milk\n- [ ] Pay rent !high @2024-02-01 ~monthly #bills\n"
	if stdout != want {
		t.Errorf("export =\n%q\nwant\n%q", stdout, want)
	}
}

func TestExportMarkdownDefaultFileCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.MustExecute("add", "Only")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(cli.TmpDir()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	stdout := cli.MustExecute("export", "--markdown", "--view", "active")
	testutil.AssertContains(t, stdout, "Exported 1 task(s) to todolite-tasks-2024-01-31.md")

	data, err := os.ReadFile(filepath.Join(cli.TmpDir(), "todolite-tasks-2024-01-31.md"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertContains(t, string(data), "# TodoLite - active")
}

func TestExportRejectsTwoFormatsCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	_, stderr := cli.ExecuteAndFail("export", "--markdown", "--pdf")
	testutil.AssertContains(t, stderr, "cannot be combined")
}

func TestImportChecklistCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	path := cli.WriteFile("list.md", `# Weekend

- [ ] Mow lawn !low #garden
- [x] Buy seeds
- [ ] Call plumber @2024-02-02
`)

	stdout := cli.MustExecute("import", path)
	testutil.AssertContains(t, stdout, "Imported 2 new task(s).")
	testutil.AssertContains(t, stdout, "Skipped 1 checked item(s).")

	stdout = cli.MustExecute("list", "--sort", "name")
	testutil.AssertContains(t, stdout, "Call plumber · Due in 2 days")
	testutil.AssertContains(t, stdout, "(low)    Mow lawn #garden")
	testutil.AssertNotContains(t, stdout, "Buy seeds")
}

func TestImportChecklistIsAllOrNothingCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	path := cli.WriteFile("bad.md", "- [ ] Fine\n- [ ] Broken @2024-13-01\n")

	_, stderr := cli.ExecuteAndFail("import", path)
	testutil.AssertContains(t, stderr, "line 2 has an invalid due date")

	stdout := cli.MustExecute("list")
	testutil.AssertContains(t, stdout, "No tasks yet.")
}
