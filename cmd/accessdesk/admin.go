package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/AccessDesk/internal/adapter/memslot"
	"github.com/Strob0t/AccessDesk/internal/adapter/mockapi"
	cfnats "github.com/Strob0t/AccessDesk/internal/adapter/nats"
	"github.com/Strob0t/AccessDesk/internal/adapter/postgres"
	"github.com/Strob0t/AccessDesk/internal/adapter/remoteapi"
	"github.com/Strob0t/AccessDesk/internal/config"
	"github.com/Strob0t/AccessDesk/internal/directory"
	"github.com/Strob0t/AccessDesk/internal/domain/audit"
	"github.com/Strob0t/AccessDesk/internal/filter"
	"github.com/Strob0t/AccessDesk/internal/port/messagequeue"
	"github.com/Strob0t/AccessDesk/internal/service"
)

// runAdmin dispatches admin subcommands (history, directory, watch, migrate).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "history":
		return runAdminHistory(args[1:])
	case "directory":
		return runAdminDirectory(args[1:])
	case "watch":
		return runAdminWatch(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: accessdesk admin <command> [options]

Commands:
  history     Print the access status audit log
  directory   Print one page of the filtered employee table
  watch       Stream access events published on NATS (requires nats.url)
  migrate     Apply or roll back database migrations (up, down, version)
  help        Show this help message

Examples:
  accessdesk admin history --limit 20
  accessdesk admin directory --q anna --system erp --status active
  accessdesk admin directory --department Finance --role Manager --page 2
  accessdesk admin watch --subject access.status.changed
  accessdesk admin migrate up
  accessdesk admin migrate down --steps 1
`)
}

func runAdminHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "show only the newest N entries (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	var queue *cfnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
	}
	slots, cleanup, err := openSlots(ctx, cfg, queue, false)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := service.NewAuditRecorder(slots, cfg.Audit.Key).ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history entries.")
		return nil
	}
	entries = newest(entries, *limit)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	writeHeader(w, "TIMESTAMP", "USER", "EMPLOYEE", "SYSTEM", "OLD", "NEW")
	for i := range entries {
		e := &entries[i]
		writeRow(w, e.Timestamp, e.UserLogin, e.EmployeeName, e.System,
			statusLabel(e.OldStatus), statusLabel(e.NewStatus))
	}
	return w.Flush()
}

// newest keeps the first limit entries of a newest-first history. A limit
// of 0 or less keeps everything.
func newest(entries []audit.Entry, limit int) []audit.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func runAdminDirectory(args []string) error {
	fs := flag.NewFlagSet("directory", flag.ContinueOnError)
	text := fs.String("q", "", "free-text search over name, email and login")
	system := fs.String("system", "", "system selector (erp, crm, sales-portal, hr-system, client-portal)")
	status := fs.String("status", "", "status selector (active, inactive)")
	department := fs.String("department", "", "department selector")
	role := fs.String("role", "", "role selector")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 0, "rows per page (0 = configured default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := filter.Query{Text: *text, System: *system, Status: *status, Department: *department, Role: *role}
	if err := q.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseURL := cfg.Remote.BaseURL
	if cfg.Backend.Embedded {
		stopBackend, addr, err := startEmbeddedBackend(cfg.Backend)
		if err != nil {
			return err
		}
		defer stopBackend()
		baseURL = "http://" + addr
	}

	remote := remoteapi.NewClient(baseURL, cfg.Remote.Timeout, cfg.Remote.MaxConcurrent)
	console := service.NewConsoleService(remote, directory.New(),
		service.NewAuditRecorder(memslot.New(), cfg.Audit.Key),
		service.NewNotificationService(),
		service.ConsoleOptions{UserLogin: cfg.Console.CurrentUserLogin, PageSize: cfg.Console.PageSize})
	defer console.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout+cfg.Backend.LoadLatency)
	defer cancel()
	if err := console.Load(ctx); err != nil {
		return err
	}

	view, err := console.View(q, *page, *pageSize)
	if err != nil {
		return err
	}
	if view.Empty {
		fmt.Println("No employees match the filters.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	writeHeader(w, "ID", "NAME", "EMAIL", "ROLE", "DEPARTMENT", "SYSTEMS")
	for i := range view.Items {
		row := &view.Items[i]
		cells := make([]string, 0, len(row.Systems))
		for _, c := range row.Systems {
			mark := "-"
			if c.Status {
				mark = "+"
			}
			cells = append(cells, mark+string(c.System))
		}
		writeRow(w, row.ID, row.Name, row.Email, row.Role, row.Department, strings.Join(cells, " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	links := make([]string, 0, len(view.Links))
	for _, l := range view.Links {
		s := l.String()
		if s == strconv.Itoa(view.Page) {
			s = "[" + s + "]"
		}
		links = append(links, s)
	}
	fmt.Printf("\nPage %d of %d (%d employees)  %s\n", view.Page, view.TotalPages, view.Total, strings.Join(links, " "))
	return nil
}

func runAdminWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	subject := fs.String("subject", "access.>", "subject filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.NATS.URL == "" {
		return errNeedsNATS
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	var mu sync.Mutex
	cancel, err := queue.Subscribe(ctx, *subject, func(_ context.Context, subject string, data []byte) error {
		line, err := describeEvent(subject, data)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Println(line)
		return nil
	})
	if err != nil {
		return err
	}
	defer cancel()

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", *subject)
	<-ctx.Done()
	return nil
}

// describeEvent renders one access event as a single line.
func describeEvent(subject string, data []byte) (string, error) {
	switch subject {
	case messagequeue.SubjectStatusChanged:
		var p messagequeue.StatusChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", subject, err)
		}
		return fmt.Sprintf("%s  %-10s %s  %s %s -> %s  by %s",
			p.Timestamp, p.Outcome, p.EmployeeName, p.System,
			statusLabel(p.OldStatus), statusLabel(p.NewStatus), p.UserLogin), nil
	case messagequeue.SubjectDirectoryLoaded:
		var p messagequeue.DirectoryLoadedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", subject, err)
		}
		if p.Error != "" {
			return fmt.Sprintf("%s  directory load failed: %s", p.Timestamp, p.Error), nil
		}
		return fmt.Sprintf("%s  directory loaded: %d employees from %s", p.Timestamp, p.Count, p.Source), nil
	case messagequeue.SubjectProfileEdited:
		var p messagequeue.ProfileEditedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", fmt.Errorf("decode %s: %w", subject, err)
		}
		return fmt.Sprintf("profile edited: %s -> %s <%s>  by %s", p.EmployeeID, p.Name, p.Email, p.UserLogin), nil
	default:
		return subject + "  " + string(data), nil
	}
}

func runAdminMigrate(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: accessdesk admin migrate <up|down|version>")
	}
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back (down only)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	case "down":
		if *steps < 1 {
			return errors.New("--steps must be at least 1")
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Migration version: %d\n", v)
	return nil
}

// startEmbeddedBackend serves the simulated access API on a loopback port.
func startEmbeddedBackend(cfg config.Backend) (stop func(), addr string, err error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("embedded backend: %w", err)
	}
	srv := &http.Server{Handler: mockapi.New(cfg).Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(lis) }()
	return func() { _ = srv.Close() }, lis.Addr().String(), nil
}

func writeRow(w io.Writer, cols ...string) {
	_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// writeHeader writes the column names, underlined only when stdout is a
// terminal so piped output stays machine-readable.
func writeHeader(w io.Writer, cols ...string) {
	writeRow(w, cols...)
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		return
	}
	rules := make([]string, len(cols))
	for i, c := range cols {
		rules[i] = strings.Repeat("-", len(c))
	}
	writeRow(w, rules...)
}

func statusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
