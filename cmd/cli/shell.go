package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/peterh/liner"

	"github.com/nickyhof/SheetDB/db"
	"github.com/nickyhof/SheetDB/ps"
)

const maxHistory = 1000

// CLI holds the shell state.
type CLI struct {
	engine      *db.Engine
	persistence *ps.Persistence
	out         io.Writer
	history     []string
	historyFile string
}

func NewCLI(engine *db.Engine, persistence *ps.Persistence, out io.Writer) *CLI {
	return &CLI{
		engine:      engine,
		persistence: persistence,
		out:         out,
		history:     make([]string, 0),
	}
}

func printBanner(w io.Writer, flags *globalFlags) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSheetDB %s%s\n", BoldColor, PromptColor, Version, ResetColor)
	if flags.baseDir == "" {
		fmt.Fprintf(w, "%sUsing memory persistence%s\n", SuccessColor, ResetColor)
	} else {
		fmt.Fprintf(w, "%sUsing file persistence: %s%s\n", SuccessColor, flags.baseDir, ResetColor)
	}
	fmt.Fprintln(w, "Enter one JSON request per line. Type .help for commands, .quit to exit")
	fmt.Fprintln(w)
}

// Run reads requests from the terminal until .quit or end of input.
func (cli *CLI) Run() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)

	cli.loadHistory()
	for _, entry := range cli.history {
		line.AppendHistory(entry)
	}
	defer cli.saveHistory()

	for {
		input, err := line.Prompt("sheetdb> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		cli.addToHistory(input)

		if strings.HasPrefix(input, ".") {
			if quit := cli.handleCommand(input); quit {
				fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
				return nil
			}
			continue
		}
		cli.executeLine(context.Background(), input)
	}
}

var commands = []string{".help", ".quit", ".exit", ".tables", ".log", ".history", ".clear", ".version", ".exec"}

func completeCommand(line string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}

// handleCommand runs a dot command and reports whether the shell should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute(context.Background(), db.Request{Op: db.OpTables})

	case ".log":
		limit := 10
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				cli.printError(fmt.Errorf("usage: .log [n]"))
				return false
			}
			limit = n
		}
		if err := printLog(cli.out, cli.persistence, limit); err != nil {
			cli.printError(err)
		}

	case ".history":
		cli.printHistory()

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "SheetDB version %s\n", Version)

	case ".exec":
		if len(parts) < 2 {
			cli.printError(fmt.Errorf("usage: .exec <file.jsonl>"))
			return false
		}
		if _, err := cli.ExecFile(context.Background(), parts[1]); err != nil {
			cli.printError(err)
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}
	return false
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h        Show this help message")
	fmt.Fprintln(w, "  .quit, .exit     Exit the shell")
	fmt.Fprintln(w, "  .tables          List tables")
	fmt.Fprintln(w, "  .log [n]         Show the last n commits (default 10)")
	fmt.Fprintln(w, "  .exec <file>     Execute requests from a JSONL file")
	fmt.Fprintln(w, "  .history         Show command history")
	fmt.Fprintln(w, "  .clear           Clear the screen")
	fmt.Fprintln(w, "  .version         Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sRequests:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, `  {"op":"create_table","table":"tasks","columns":["status","score"]}`)
	fmt.Fprintln(w, `  {"op":"insert","table":"tasks","data":{"status":"OPEN","score":85}}`)
	fmt.Fprintln(w, `  {"op":"select","table":"tasks","where":{"score":">= 80"},"options":{"orderBy":"score","limit":5}}`)
	fmt.Fprintln(w, `  {"op":"update","table":"tasks","where":{"status":"OPEN"},"data":{"status":"DONE"}}`)
	fmt.Fprintln(w, `  {"op":"upsert","table":"tasks","where":{"id":"7"},"data":{"status":"NEW"}}`)
	fmt.Fprintln(w, `  {"op":"delete","table":"tasks","where":{"status":{"$in":["DONE","CANCELLED"]}}}`)
	fmt.Fprintln(w, `  {"op":"export","table":"tasks","url":"s3://bucket/tasks.csv"}`)
	fmt.Fprintln(w, `  {"op":"import","table":"tasks","url":"https://example.com/tasks.csv"}`)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sOperators:%s $eq $ne $gt $gte $lt $lte $in $nin $contains $startsWith $endsWith $regex\n",
		BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w)
}

func (cli *CLI) printError(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func parseRequest(line string) (db.Request, error) {
	var req db.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return db.Request{}, fmt.Errorf("%w: %v", db.ErrInvalidRequest, err)
	}
	return req, nil
}

// executeLine parses and runs one request, printing its result.
func (cli *CLI) executeLine(ctx context.Context, line string) bool {
	req, err := parseRequest(line)
	if err != nil {
		cli.printError(err)
		return false
	}
	return cli.execute(ctx, req)
}

func (cli *CLI) execute(ctx context.Context, req db.Request) bool {
	result, err := cli.engine.Do(ctx, req)
	if err != nil {
		cli.printError(err)
		return false
	}
	result.Display(cli.out)
	return true
}

// ExecFile runs every request in a JSONL file and returns how many failed.
// Blank lines and lines starting with # are skipped.
func (cli *CLI) ExecFile(ctx context.Context, filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	succeeded, failed := 0, 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseRequest(line)
		var result db.Result
		if err == nil {
			result, err = cli.engine.Do(ctx, req)
		}
		if err != nil {
			failed++
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, lineNo, truncate(line, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			continue
		}
		succeeded++
		fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s%s\n", SuccessColor, lineNo, truncate(line, 50), summarize(result), ResetColor)
	}
	if err := scanner.Err(); err != nil {
		return failed, fmt.Errorf("failed to read file: %w", err)
	}

	fmt.Fprintf(cli.out, "\n%s✓ Exec complete: %d succeeded, %d failed%s\n", SuccessColor, succeeded, failed, ResetColor)
	return failed, nil
}

// summarize renders a compact result suffix for ExecFile output.
func summarize(result db.Result) string {
	switch r := result.(type) {
	case db.CommitResult:
		var details []string
		if r.TablesCreated > 0 {
			details = append(details, fmt.Sprintf("%d table created", r.TablesCreated))
		}
		if r.RecordsWritten > 0 {
			details = append(details, fmt.Sprintf("%d written", r.RecordsWritten))
		}
		if r.RecordsUpdated > 0 {
			details = append(details, fmt.Sprintf("%d updated", r.RecordsUpdated))
		}
		if r.RecordsDeleted > 0 {
			details = append(details, fmt.Sprintf("%d deleted", r.RecordsDeleted))
		}
		if len(details) == 0 {
			return ""
		}
		return " (" + strings.Join(details, ", ") + ")"
	case db.QueryResult:
		return fmt.Sprintf(" (%d rows)", len(r.Documents))
	case db.UpsertResult:
		return fmt.Sprintf(" (%s %d)", r.Kind, r.Count)
	default:
		return ""
	}
}

func printLog(w io.Writer, persistence *ps.Persistence, limit int) error {
	log, err := persistence.Log(limit)
	if err != nil {
		return err
	}
	if len(log) == 0 {
		fmt.Fprintln(w, "No commits")
		return nil
	}
	for _, txn := range log {
		fmt.Fprintf(w, "%s%s%s %s %s\n    %s\n",
			PromptColor, shortHash(txn.Id), ResetColor, txn.When.Format("2006-01-02 15:04:05"), txn.Author, txn.Message)
	}
	return nil
}

func (cli *CLI) addToHistory(cmd string) {
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)
	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}
	start := max(0, len(cli.history)-20)
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sheetdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}
	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.addToHistory(scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}
	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range cli.history {
		w.WriteString(entry + "\n")
	}
	w.Flush()
}

// truncate shortens s to limit runes with an ellipsis.
func truncate(s string, limit int) string {
	s = strings.NewReplacer("\n", " ", "\t", " ").Replace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
