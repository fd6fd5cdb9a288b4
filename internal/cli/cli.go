package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trade_console/internal/catalog"
	"trade_console/internal/config"
	"trade_console/internal/invoice"
	"trade_console/internal/session"

	"go.uber.org/zap"
)

var ErrCommandFailed = errors.New("command failed")

type Runner struct {
	options  Options
	logger   *zap.Logger
	sessions *session.Manager
	catalog  *catalog.Catalog
	flow     *invoice.Flow
	entities map[string]entityView

	in   *bufio.Scanner
	out  io.Writer
	term *terminal
}

func NewRunner(cfg config.Config, logger *zap.Logger, sessions *session.Manager, c *catalog.Catalog, flow *invoice.Flow) *Runner {
	opts := Options{
		PageSize: cfg.PageSize,
		Pages:    1,
		UserName: cfg.XTSUsername,
		Password: cfg.XTSPassword,
	}
	return newRunner(opts, logger, sessions, c, flow, os.Stdin, os.Stdout)
}

func newRunner(opts Options, logger *zap.Logger, sessions *session.Manager, c *catalog.Catalog, flow *invoice.Flow, in io.Reader, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		options:  opts,
		logger:   logger.Named("cli"),
		sessions: sessions,
		catalog:  c,
		flow:     flow,
		in:       bufio.NewScanner(in),
		out:      out,
	}
	r.term = &terminal{runner: r}
	r.entities = entityViews(c)
	return r
}

func (r *Runner) Execute() error {
	return r.run(os.Args[1:])
}

func (r *Runner) run(args []string) error {
	fs := flag.NewFlagSet("trade-console", flag.ContinueOnError)
	fs.SetOutput(r.out)
	fs.Usage = func() {
		fmt.Fprintf(r.out, "Usage: %s [flags] [command] [args]\n\n", fs.Name())
		fmt.Fprint(r.out, commandHelp)
		fmt.Fprintln(r.out, "\nFlags:")
		fs.PrintDefaults()
	}

	fs.BoolVar(&r.options.JSON, "json", r.options.JSON, "Output JSON format")
	fs.BoolVar(&r.options.Yes, "yes", r.options.Yes, "Answer yes to every confirmation")
	fs.BoolVar(&r.options.Interactive, "i", r.options.Interactive, "Ask before loading more pages and allow invoice review")
	fs.IntVar(&r.options.PageSize, "page-size", r.options.PageSize, "Items per page (PAGE_SIZE)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if r.options.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if fs.NArg() == 0 {
		r.options.Interactive = true
		return r.runREPL(ctx)
	}
	return r.runOneShot(ctx, fs.Args())
}

func (r *Runner) runOneShot(ctx context.Context, args []string) error {
	if err := r.dispatch(ctx, args); err != nil {
		r.report(err)
		return ErrCommandFailed
	}
	return nil
}

func (r *Runner) runREPL(ctx context.Context) error {
	fmt.Fprintln(r.out, "Trade console (type 'help' for commands, 'exit' to quit)")

	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "help":
			fmt.Fprint(r.out, commandHelp)
			continue
		case "exit", "quit":
			return nil
		}

		args, err := splitCommandLine(line)
		if err != nil {
			r.report(err)
			continue
		}
		if err := r.dispatch(ctx, args); err != nil {
			r.report(err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

const commandHelp = `Commands:
  login [--user NAME] [--password PASS] [--remember]
  logout
  whoami
  list <entity> [--search TEXT] [--search-by FIELD] [--filter key=value]... [--pages N]
  show <entity> <id>
  edit <entity> <id> [--dry-run] field=value...
  scan-invoice [--save] [--supplier NAME] [--quick-fill-name NAME]
               [--quick-fill-coefficient N] [--quick-fill-discount N] <image>...
Entities: products, partners, employees, currencies, orders, cash-receipts,
          transfer-receipts, supplier-invoices
`

func (r *Runner) dispatch(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	r.logger.Info("command received", zap.String("command", name), zap.Int("args", len(rest)))

	switch name {
	case "login":
		return r.cmdLogin(ctx, rest)
	case "logout":
		return r.cmdLogout(ctx)
	case "whoami":
		return r.cmdWhoami()
	case "list":
		return r.cmdList(ctx, rest)
	case "show":
		return r.cmdShow(ctx, rest)
	case "edit":
		return r.cmdEdit(ctx, rest)
	case "scan-invoice":
		return r.cmdScanInvoice(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

// report prints err unless a notifier already showed it to the user.
func (r *Runner) report(err error) {
	var shown reportedError
	if errors.As(err, &shown) {
		return
	}
	r.term.NotifyError(err)
}
