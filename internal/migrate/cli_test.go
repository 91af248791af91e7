package migrate_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"todolite/internal/migrate"
	"todolite/internal/testutil"
)

func withSQLite(cli *testutil.CLITest) {
	cli.SetFullConfig(`storage:
  backend: file
  sqlite:
    path: ` + filepath.Join(cli.TmpDir(), "db", "todolite.db") + `
`)
}

func TestMigrateFileToSQLiteCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	withSQLite(cli)
	cli.MustExecute("add", "Task 1")
	cli.MustExecute("add", "Task 2", "--repeat", "daily")

	stdout := cli.MustExecute("migrate", "--from", "file", "--to", "sqlite")
	testutil.AssertContains(t, stdout, "Migrated 2 of 2 task(s) from file to sqlite.")
	testutil.AssertResultCode(t, stdout, testutil.ResultActionCompleted)

	stdout = cli.MustExecute("migrate", "--from", "file", "--to", "sqlite")
	testutil.AssertContains(t, stdout, "Migrated 0 of 2 task(s)")
	testutil.AssertContains(t, stdout, "Skipped 2 task(s) already in sqlite.")
	testutil.AssertResultCode(t, stdout, testutil.ResultInfoOnly)
}

func TestMigrateDryRunCLI(t *testing.T) {
	cli := testutil.NewCLITest(t)
	withSQLite(cli)
	cli.MustExecute("add", "Task 1")

	stdout := cli.MustExecute("migrate", "--from", "file", "--to", "sqlite", "--dry-run", "--json")
	var resp struct {
		Report migrate.Result `json:"report"`
		Result string         `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if !resp.Report.DryRun || resp.Report.Migrated != 1 || resp.Result != testutil.ResultInfoOnly {
		t.Errorf("unexpected response %+v", resp)
	}

	stdout = cli.MustExecute("migrate", "--from", "sqlite", "--to", "file")
	testutil.AssertContains(t, stdout, "Migrated 0 of 0 task(s) from sqlite to file.")
}

func TestMigrateErrorsCLI(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing flags", []string{"migrate", "--from", "file"}, "both --from and --to are required"},
		{"same backend", []string{"migrate", "--from", "file", "--to", "file"}, "source and target are both"},
		{"unknown backend", []string{"migrate", "--from", "file", "--to", "nextcloud"}, "invalid backend: nextcloud"},
		{"redis without address", []string{"migrate", "--from", "file", "--to", "redis"}, "storage.redis.addr is not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := testutil.NewCLITest(t)
			_, stderr := cli.ExecuteAndFail(tt.args...)
			testutil.AssertContains(t, stderr, tt.want)
		})
	}
}
