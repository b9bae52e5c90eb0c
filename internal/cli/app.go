// Package cli implements the knolboard command line.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/config"
	"github.com/conorfennell/knolboard/internal/logging"
	"github.com/conorfennell/knolboard/internal/metrics"
	"github.com/conorfennell/knolboard/internal/session"
	"github.com/conorfennell/knolboard/internal/storage"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage error")

// App runs one knolboard invocation.
type App struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Now is the clock used for "today". Defaults to time.Now.
	Now func() time.Time
}

// env is what every command gets to work with.
type env struct {
	cfg      *config.Config
	loc      *time.Location
	logger   *slog.Logger
	db       *storage.DB
	sessions *session.Manager
	client   *api.Client
	metrics  *metrics.Metrics
	in       *bufio.Reader
	out      io.Writer
	errOut   io.Writer
	now      func() time.Time
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":    {"log in and store the session", runLogin},
		"logout":   {"forget the stored session", runLogout},
		"register": {"create an account (needs admin approval)", runRegister},
		"whoami":   {"show the logged-in user", runWhoami},
		"decks":    {"list flashcard decks", runDecks},
		"cards":    {"list the cards in a deck", runCards},
		"study":    {"review the due cards of a deck", runStudy},
		"streak":   {"show the current activity streak", runStreak},
		"summary":  {"show today's dashboard", runSummary},
		"events":   {"list or add calendar tasks", runEvents},
		"complete": {"mark a task completed", runComplete},
		"skip":     {"mark a task skipped", runSkip},
		"diary":    {"list or write diary entries", runDiary},
		"import":   {"import markdown cards into a deck", runImport},
		"admin":    {"admin stats and account approval", runAdmin},
	}
}

// Run executes args, which exclude the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	flags := config.FlagSet("knolboard")
	flags.SetOutput(a.Err)
	flags.Usage = func() { a.usage(flags) }

	cfg, rest, err := config.Load(flags, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if len(rest) == 0 {
		a.usage(flags)
		return ErrUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		a.usage(flags)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, rest[0])
	}

	logger := logging.Setup(a.Err, cfg.LogLevel, cfg.LogFormat)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()
	sessions := session.NewManager(db, logger)
	client, err := api.New(api.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Location:  loc,
		Logger:    logger,
		Metrics:   m,
	}, sessions)
	if err != nil {
		return err
	}

	now := a.Now
	if now == nil {
		now = time.Now
	}
	e := &env{
		cfg:      cfg,
		loc:      loc,
		logger:   logger,
		db:       db,
		sessions: sessions,
		client:   client,
		metrics:  m,
		in:       bufio.NewReader(a.In),
		out:      a.Out,
		errOut:   a.Err,
		now:      func() time.Time { return now().In(loc) },
	}

	err = cmd.run(ctx, e, rest[1:])

	if cfg.MetricsFile != "" {
		if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}

	if errors.Is(err, api.ErrUnauthenticated) {
		return fmt.Errorf("%w (run 'knolboard login')", err)
	}
	return err
}

func (a *App) usage(flags *pflag.FlagSet) {
	fmt.Fprintln(a.Err, "usage: knolboard [flags] <command> [args]")
	fmt.Fprintln(a.Err, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.Err, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(a.Err, "\nflags:")
	fmt.Fprint(a.Err, flags.FlagUsages())
}

// newFlags creates the flag set for a subcommand.
func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

// readLine reads one line from the input without its line ending. At end of
// input it returns io.EOF, unless a final unterminated line was read.
func (e *env) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *env) prompt(format string, args ...any) (string, error) {
	fmt.Fprintf(e.out, format, args...)
	return e.readLine()
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// today returns the start and end of the current local day.
func (e *env) today() (time.Time, time.Time) {
	y, m, d := e.now().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	return start, endOfDay(start)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrUsage, s)
	}
	return t, nil
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid time %q, want YYYY-MM-DDTHH:MM", ErrUsage, s)
}
