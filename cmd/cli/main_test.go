package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/ps"
	"github.com/nickyhof/SheetDB/query"
)

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	engine := SheetDB.Open(persistence).Engine(core.Identity{Name: "test", Email: "test@test.com"})

	var out bytes.Buffer
	return NewCLI(engine, persistence, &out), &out
}

func count(t *testing.T, cli *CLI, table string) int {
	t.Helper()
	docs, err := cli.engine.Select(table, nil, core.Options{})
	if err != nil {
		t.Fatalf("Failed to select %s: %v", table, err)
	}
	return len(docs)
}

func TestCLIExecuteLine(t *testing.T) {
	cli, out := setupTestCLI(t)

	if !cli.executeLine(context.Background(), `{"op":"create_table","table":"users","columns":["name"]}`) {
		t.Fatalf("create_table failed: %s", out)
	}
	if !cli.executeLine(context.Background(), `{"op":"insert","table":"users","data":{"id":"1","name":"Alice"}}`) {
		t.Fatalf("insert failed: %s", out)
	}

	out.Reset()
	if !cli.executeLine(context.Background(), `{"op":"select","table":"users"}`) {
		t.Fatalf("select failed: %s", out)
	}
	if !strings.Contains(out.String(), "Alice") {
		t.Errorf("Expected selected row in output, got:\n%s", out)
	}
}

func TestCLIExecuteLineErrors(t *testing.T) {
	cli, out := setupTestCLI(t)

	if cli.executeLine(context.Background(), `{"op":`) {
		t.Error("Expected malformed JSON to fail")
	}
	if !strings.Contains(out.String(), "invalid request") {
		t.Errorf("Expected invalid request error, got: %s", out)
	}

	out.Reset()
	if cli.executeLine(context.Background(), `{"op":"select","table":"missing"}`) {
		t.Error("Expected select on missing table to fail")
	}
	if !strings.Contains(out.String(), "table not found") {
		t.Errorf("Expected table not found error, got: %s", out)
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory(`{"op":"tables"}`)
	cli.addToHistory(".help")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	cli.addToHistory(".help")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < maxHistory+100; i++ {
		cli.addToHistory("cmd " + string(rune('a'+i%26)) + strings.Repeat("x", i))
	}
	if len(cli.history) != maxHistory {
		t.Errorf("Expected history to be limited to %d, got %d", maxHistory, len(cli.history))
	}
}

func TestCLIHistoryFile(t *testing.T) {
	cli, _ := setupTestCLI(t)
	cli.historyFile = filepath.Join(t.TempDir(), "history")
	cli.addToHistory(".tables")
	cli.addToHistory(`{"op":"tables"}`)
	cli.saveHistory()

	reloaded, _ := setupTestCLI(t)
	reloaded.historyFile = cli.historyFile
	reloaded.loadHistory()
	if strings.Join(reloaded.history, "|") != `.tables|{"op":"tables"}` {
		t.Errorf("Unexpected reloaded history: %v", reloaded.history)
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, out := setupTestCLI(t)

	tests := []struct {
		command string
		quit    bool
	}{
		{".help", false},
		{".version", false},
		{".history", false},
		{".tables", false},
		{".log", false},
		{".log x", false},
		{".exec", false},
		{".unknown", false},
		{".quit", true},
		{".EXIT", true},
	}
	for _, test := range tests {
		if quit := cli.handleCommand(test.command); quit != test.quit {
			t.Errorf("handleCommand(%s) = %v, expected %v", test.command, quit, test.quit)
		}
	}
	if !strings.Contains(out.String(), "Unknown command: .unknown") {
		t.Error("Expected unknown command message")
	}
	if !strings.Contains(out.String(), "usage: .log [n]") {
		t.Error("Expected .log usage message")
	}
}

func TestCLILogCommand(t *testing.T) {
	cli, out := setupTestCLI(t)
	cli.executeLine(context.Background(), `{"op":"create_table","table":"t","columns":["v"]}`)
	cli.executeLine(context.Background(), `{"op":"insert","table":"t","data":{"v":1}}`)

	out.Reset()
	cli.handleCommand(".log 1")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected one commit (2 lines), got:\n%s", out)
	}
	if !strings.Contains(lines[0], "test <test@test.com>") || !strings.Contains(lines[1], "Appending row to t") {
		t.Errorf("Unexpected log output:\n%s", out)
	}
}

func TestCompleteCommand(t *testing.T) {
	got := completeCommand(".h")
	if strings.Join(got, ",") != ".help,.history" {
		t.Errorf("Unexpected completions: %v", got)
	}
	if len(completeCommand(`{"op"`)) != 0 {
		t.Error("Expected no completions for requests")
	}
}

func TestVersionVariable(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		limit    int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"exact", 5, "exact"},
		{"line\nbreak", 20, "line break"},
	}

	for _, test := range tests {
		if result := truncate(test.input, test.limit); result != test.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.input, test.limit, result, test.expected)
		}
	}
}

func TestExecFile(t *testing.T) {
	cli, out := setupTestCLI(t)

	failed, err := cli.ExecFile(context.Background(), "../../examples/shop.jsonl")
	if err != nil {
		t.Fatalf("ExecFile failed: %v", err)
	}
	if failed != 0 {
		t.Fatalf("Expected no failures, got %d:\n%s", failed, out)
	}

	if n := count(t, cli, "products"); n != 5 {
		t.Errorf("Expected 5 products, got %d", n)
	}
	if n := count(t, cli, "customers"); n != 4 {
		t.Errorf("Expected 4 customers, got %d", n)
	}

	docs, _ := cli.engine.Select("products", query.Query{"id": "p3"}, core.Options{})
	if len(docs) != 1 || query.Stringify(docs[0].Fields["stock"]) != "5" {
		t.Errorf("Expected restocked desk, got %v", docs)
	}
	if !strings.Contains(out.String(), "succeeded, 0 failed") {
		t.Errorf("Expected summary line, got:\n%s", out)
	}
}

func TestExecFileReportsFailures(t *testing.T) {
	cli, out := setupTestCLI(t)

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	content := strings.Join([]string{
		`{"op":"create_table","table":"t","columns":["v"]}`,
		`{"op":"insert","table":"missing","data":{"v":1}}`,
		`not json`,
		`{"op":"insert","table":"t","data":{"v":1}}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	failed, err := cli.ExecFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ExecFile failed: %v", err)
	}
	if failed != 2 {
		t.Errorf("Expected 2 failures, got %d", failed)
	}
	if !strings.Contains(out.String(), "2 succeeded, 2 failed") {
		t.Errorf("Unexpected summary:\n%s", out)
	}
}

func TestExecFileNotFound(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if _, err := cli.ExecFile(context.Background(), "nonexistent.jsonl"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		result db.Result
		want   string
	}{
		{db.CommitResult{TablesCreated: 1}, " (1 table created)"},
		{db.CommitResult{RecordsUpdated: 2, RecordsDeleted: 1}, " (2 updated, 1 deleted)"},
		{db.CommitResult{}, ""},
		{db.QueryResult{Documents: make([]core.Document, 3)}, " (3 rows)"},
		{db.UpsertResult{Kind: db.Inserted, Count: 1}, " (inserted 1)"},
	}
	for _, tt := range tests {
		if got := summarize(tt.result); got != tt.want {
			t.Errorf("summarize(%+v) = %q, want %q", tt.result, got, tt.want)
		}
	}
}

func TestRootCommandExecLogAndPushPull(t *testing.T) {
	dir := t.TempDir()

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--base-dir", dir}, args...))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("sheetdb %v failed: %v\n%s", args, err, out.String())
		}
		return out.String()
	}

	run("exec", "../../examples/shop.jsonl")

	out := run("log", "-n", "2")
	if strings.Count(out, "SheetDB <cli@sheetdb.local>") != 2 {
		t.Errorf("Expected two commits by the CLI identity, got:\n%s", out)
	}

	var errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&errOut)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--base-dir", dir, "push", "--remote", "nowhere"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected push to an unknown remote to fail")
	}
}

func TestRemoteFlagsAuth(t *testing.T) {
	if (&remoteFlags{}).auth() != nil {
		t.Error("Expected no auth by default")
	}
	if auth := (&remoteFlags{token: "t"}).auth(); auth.Type != ps.AuthTypeToken {
		t.Errorf("Expected token auth, got %v", auth.Type)
	}
	if auth := (&remoteFlags{sshKey: "k"}).auth(); auth.Type != ps.AuthTypeSSH || auth.KeyPath != "k" {
		t.Errorf("Expected ssh auth, got %+v", auth)
	}
	if auth := (&remoteFlags{username: "u", password: "p"}).auth(); auth.Type != ps.AuthTypeBasic {
		t.Errorf("Expected basic auth, got %v", auth.Type)
	}
}
