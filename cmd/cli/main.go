package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	mandukyadb "github.com/nickyhof/MandukyaDB"
	"github.com/nickyhof/MandukyaDB/db"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Flags are the command-line options. Values given here override the
// config file.
type Flags struct {
	Database  string `arg:"" optional:"" default:":memory:" help:"Database file, or :memory:"`
	Config    string `short:"c" type:"existingfile" help:"YAML config file"`
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	CacheSize int    `name:"cache-size" help:"Maximum number of cached query results"`
	Compress  bool   `help:"xz-compress database snapshots"`
	SQLFile   string `name:"sql-file" type:"existingfile" help:"SQL file to execute (non-interactive)"`
	Version   bool   `short:"v" help:"Print version and exit"`
}

// CLI holds the CLI state
type CLI struct {
	db          *mandukyadb.DB
	out         io.Writer
	color       bool
	history     []string
	historyFile string
}

func main() {
	var flags Flags
	kong.Parse(&flags,
		kong.Name("mandukya"),
		kong.Description("MandukyaDB - embeddable single-file SQL database"),
		kong.UsageOnError(),
	)

	if flags.Version {
		fmt.Printf("MandukyaDB %s\n", Version)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
}

func run(flags Flags) error {
	logger := newLogger(flags.LogLevel)
	slog.SetDefault(logger)

	config, err := loadConfig(flags)
	if err != nil {
		return err
	}
	config.Logger = logger

	handle, err := mandukyadb.OpenConfig(flags.Database, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	cli := &CLI{
		db:          handle,
		out:         os.Stdout,
		color:       isatty.IsTerminal(os.Stdout.Fd()),
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	// Execute SQL file if provided
	if flags.SQLFile != "" {
		failed, err := cli.importFile(flags.SQLFile)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d statement(s) failed", failed)
		}
		return nil
	}

	cli.loadHistory()
	cli.printBanner(flags.Database)
	cli.run(os.Stdin)
	cli.saveHistory()
	return nil
}

func newLogger(level string) *slog.Logger {
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(level)); err != nil {
		ll = slog.LevelWarn
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// loadConfig reads the YAML config file, if any, then applies flags.
func loadConfig(flags Flags) (mandukyadb.Config, error) {
	config := mandukyadb.DefaultConfig()

	if flags.Config != "" {
		data, err := os.ReadFile(flags.Config)
		if err != nil {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config %s: %w", flags.Config, err)
		}
	}

	if flags.CacheSize > 0 {
		config.CacheSize = flags.CacheSize
	}
	if flags.Compress {
		config.Compress = true
	}
	return config, nil
}

func (cli *CLI) paint(color, s string) string {
	if !cli.color {
		return s
	}
	return color + s + ResetColor
}

func (cli *CLI) success(format string, args ...any) {
	fmt.Fprintln(cli.out, cli.paint(SuccessColor, fmt.Sprintf(format, args...)))
}

func (cli *CLI) failure(format string, args ...any) {
	fmt.Fprintln(cli.out, cli.paint(ErrorColor, fmt.Sprintf(format, args...)))
}

func (cli *CLI) printBanner(target string) {
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, cli.paint(BoldColor+PromptColor, fmt.Sprintf("MandukyaDB %s", Version)))
	if target == mandukyadb.MemoryTarget {
		cli.success("Using in-memory database")
	} else {
		cli.success("Using database file: %s", target)
	}
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

// run reads statements until EOF or .quit. Lines accumulate until a
// semicolon outside a string literal completes a statement; every completed
// statement on a line runs on its own.
func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			fmt.Fprintln(cli.out)
			cli.success("Goodbye!")
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Dot-commands are only recognised at the start of a statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if !cli.handleCommand(input) {
				cli.success("Goodbye!")
				return
			}
			continue
		}

		if multiLineBuffer.Len() > 0 {
			multiLineBuffer.WriteByte('\n')
		}
		multiLineBuffer.WriteString(input)

		statements, rest := scanStatements(multiLineBuffer.String())
		multiLineBuffer.Reset()
		if strings.TrimSpace(rest) != "" {
			multiLineBuffer.WriteString(rest)
		}

		for _, stmt := range statements {
			stmt += ";"
			// History is line-oriented.
			cli.addToHistory(strings.ReplaceAll(stmt, "\n", " "))
			cli.execute(stmt)
		}
	}
}

func (cli *CLI) execute(statement string) {
	result, err := cli.db.Execute(statement)
	if err != nil {
		cli.failure("✗ Error: %v", err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return cli.paint(PromptColor, "   ...>") + " "
	}
	return cli.paint(PromptColor, "mandukya>") + " "
}

// handleCommand runs a dot-command. It returns false when the CLI should
// exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".schema":
		cli.showSchema(parts[1:])

	case ".stats":
		cli.showStats()

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "MandukyaDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if _, err := cli.importFile(parts[1]); err != nil {
				cli.failure("✗ Error: %v", err)
			}
		} else {
			cli.failure("✗ Usage: .import <file.sql>")
		}

	default:
		cli.failure("✗ Unknown command: %s (type .help for commands)", parts[0])
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, cli.paint(BoldColor+PromptColor, "Special Commands:"))
	fmt.Fprintln(cli.out, "  .help, .h        Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit     Exit the CLI")
	fmt.Fprintln(cli.out, "  .tables          List all tables")
	fmt.Fprintln(cli.out, "  .schema [table]  Show CREATE TABLE statements")
	fmt.Fprintln(cli.out, "  .stats           Show storage and cache statistics")
	fmt.Fprintln(cli.out, "  .import <file>   Execute SQL statements from a file")
	fmt.Fprintln(cli.out, "  .history         Show command history")
	fmt.Fprintln(cli.out, "  .version         Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, cli.paint(BoldColor+PromptColor, "SQL Commands:"))
	fmt.Fprintln(cli.out, "  CREATE TABLE <table> (<column> <type>, ...);")
	fmt.Fprintln(cli.out, "  DROP TABLE <table>;")
	fmt.Fprintln(cli.out, "  INSERT INTO <table> VALUES (<vals>);")
	fmt.Fprintln(cli.out, "  SELECT <cols> FROM <table> [WHERE <col> <op> <val>];")
	fmt.Fprintln(cli.out, "  DELETE FROM <table> [WHERE <col> <op> <val>];")
	fmt.Fprintln(cli.out, "  DESCRIBE <table>;")
	fmt.Fprintln(cli.out, "  SHOW TABLES;")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, cli.paint(BoldColor+PromptColor, "Types:")+" INTEGER, TEXT, REAL, BLOB")
	fmt.Fprintln(cli.out, cli.paint(BoldColor+PromptColor, "Operators:")+" =, !=, <, >, <=, >=")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) showTables() {
	tables := cli.db.Tables()
	if len(tables) == 0 {
		fmt.Fprintln(cli.out, "No tables")
		return
	}
	for _, name := range tables {
		fmt.Fprintln(cli.out, name)
	}
}

func (cli *CLI) showSchema(filter []string) {
	for _, table := range cli.db.Schemas() {
		if len(filter) > 0 && filter[0] != table.Name {
			continue
		}
		columns := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			columns[i] = col.Name + " " + col.Type.String()
		}
		fmt.Fprintf(cli.out, "CREATE TABLE %s (%s);\n", table.Name, strings.Join(columns, ", "))
	}
}

func (cli *CLI) showStats() {
	data, err := json.MarshalIndent(cli.db.Stats(), "", "  ")
	if err != nil {
		cli.failure("✗ Error: %v", err)
		return
	}
	fmt.Fprintln(cli.out, string(data))
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := max(len(cli.history)-20, 0)
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mandukya_history")
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
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		slog.Debug("Failed to save history", "path", cli.historyFile, "error", err)
		return
	}
	defer file.Close()

	start := max(len(cli.history)-1000, 0)
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile executes every statement in a file and reports each outcome.
// It returns the number of statements that failed.
func (cli *CLI) importFile(filename string) (int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, stmt := range splitStatements(string(data)) {
		result, err := cli.db.Execute(stmt + ";")
		if err != nil {
			cli.failure("[%d] ✗ %s", i+1, truncate(stmt, 50))
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++

		switch r := result.(type) {
		case db.CommitResult:
			var details []string
			if r.TablesCreated > 0 {
				details = append(details, fmt.Sprintf("%d table created", r.TablesCreated))
			}
			if r.TablesDeleted > 0 {
				details = append(details, fmt.Sprintf("%d table deleted", r.TablesDeleted))
			}
			if r.RecordsWritten > 0 {
				details = append(details, fmt.Sprintf("%d written", r.RecordsWritten))
			}
			if r.RecordsDeleted > 0 {
				details = append(details, fmt.Sprintf("%d deleted", r.RecordsDeleted))
			}
			detailStr := ""
			if len(details) > 0 {
				detailStr = " (" + strings.Join(details, ", ") + ")"
			}
			cli.success("[%d] ✓ %s%s", i+1, truncate(stmt, 50), detailStr)
		case db.QueryResult:
			cli.success("[%d] ✓ %s (%d rows)", i+1, truncate(stmt, 50), len(r.Rows))
		default:
			cli.success("[%d] ✓ %s", i+1, truncate(stmt, 50))
		}
	}

	cli.success("\n✓ Import complete: %d succeeded, %d failed", successCount, errorCount)

	return errorCount, nil
}

// splitStatements splits SQL content on semicolons outside string literals.
// Inside a literal a doubled quote is an escaped quote, which toggling
// handles without special casing. Empty statements and -- comments are
// dropped.
func splitStatements(content string) []string {
	statements, rest := scanStatements(content)
	if rest = strings.TrimSpace(rest); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}

// scanStatements returns the statements terminated by a semicolon outside a
// string literal, without the semicolon, and the unterminated remainder.
// "--" comments outside literals are dropped; literal contents are kept
// byte for byte.
func scanStatements(content string) ([]string, string) {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if ch == '\'' {
			inString = !inString
		}

		// Handle comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i+1 < len(content) && content[i+1] != '\n' {
				i++
			}
			continue
		}

		// Statement separator
		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	return statements, current.String()
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
