package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dgellow/finfront/internal/apiclient"
	"github.com/dgellow/finfront/internal/apierror"
	"github.com/dgellow/finfront/internal/config"
	"github.com/dgellow/finfront/internal/finance"
	jsonwriter "github.com/dgellow/finfront/internal/json"
	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/mcptools"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/dgellow/finfront/internal/notify"
	"github.com/dgellow/finfront/internal/session"
	"github.com/dgellow/finfront/internal/storage"
	"github.com/shopspring/decimal"
)

// errUsage marks errors already explained by a usage message
var errUsage = errors.New("usage")

type appOptions struct {
	Route   string
	JSON    bool
	Metrics *metrics.Metrics
	Version string
	Out     io.Writer
	ErrOut  io.Writer
	In      io.Reader
}

type app struct {
	cfg      config.Config
	opts     appOptions
	store    storage.Storage
	sess     *session.Manager
	api      *apiclient.Client
	fin      *finance.Client
	notifier notify.Notifier
	nav      *notify.RouteNavigator
	now      func() time.Time
}

// routeFor maps a command to the screen it stands for, so a session that
// ends during login does not redirect to the sign-in route again
func routeFor(command string, cfg config.Config) string {
	switch command {
	case "login":
		return cfg.Session.SignInPath
	case "tx":
		return "/transactions"
	case "accounts":
		return "/account-sources"
	case "budgets", "targets", "chat", "admin":
		return "/" + command
	default:
		return "/"
	}
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (*app, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	sess, err := session.NewManager(ctx, store, nil, base)
	if err != nil {
		store.Close()
		return nil, err
	}

	notifier := notify.NewConsoleNotifier(opts.ErrOut, cfg.UI.Color)
	nav := notify.NewRouteNavigator(opts.Route, opts.ErrOut)
	api, err := apiclient.NewFromConfig(cfg, sess, notifier, nav, opts.Metrics)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		opts:     opts,
		store:    store,
		sess:     sess,
		api:      api,
		fin:      finance.New(api, cfg.API.Endpoints),
		notifier: notifier,
		nav:      nav,
		now:      time.Now,
	}, nil
}

// Close flushes a pending redirect and releases the credential store
func (a *app) Close() {
	a.api.Close()
	if err := a.store.Close(); err != nil {
		log.LogWarnWithFields("main", "Failed to close credential store", map[string]any{"error": err.Error()})
	}
}

// run executes one command and returns the process exit code
func (a *app) run(ctx context.Context, args []string) int {
	err := a.dispatch(ctx, args)
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	a.reportError(ctx, err)
	return 1
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "token":
		return a.token(ctx)
	case "tx":
		return a.tx(ctx, rest)
	case "accounts":
		return a.accounts(ctx, rest)
	case "budgets":
		return a.budgets(ctx, rest)
	case "targets":
		return a.targets(ctx, rest)
	case "admin":
		return a.admin(ctx, rest)
	case "chat":
		return a.chat(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "mcp":
		return mcptools.NewServer(a.fin, a.api.Localizer(), a.opts.Metrics, a.opts.Version).ServeStdio()
	default:
		return a.usageError("unknown command %q", cmd)
	}
}

func (a *app) usageError(format string, args ...any) error {
	fmt.Fprintf(a.opts.ErrOut, "Error: "+format+"\n", args...)
	fmt.Fprintln(a.opts.ErrOut, "Run with -help for usage information")
	return errUsage
}

// reportError prints err as JSON or as localized notifications. An expired
// session has already been announced by the client.
func (a *app) reportError(ctx context.Context, err error) {
	kind := apierror.Classify(err)
	if a.opts.JSON {
		out := jsonwriter.ErrorOutput{Error: err.Error(), Kind: string(kind)}
		var se apierror.StatusError
		if errors.As(err, &se) {
			out.Status = se.StatusCode()
			out.Messages = apierror.Messages(a.api.Localizer(), err)
		}
		_ = jsonwriter.WriteError(a.opts.Out, out)
		return
	}
	if kind == apierror.KindUnknown && !errors.Is(err, apierror.ErrSessionExpired) {
		fmt.Fprintf(a.opts.ErrOut, "Error: %v\n", err)
		return
	}
	apierror.Report(ctx, a.notifier, a.api.Localizer(), err)
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.opts.ErrOut)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// print writes v as JSON in -json mode, otherwise calls text
func (a *app) print(v any, text func(w io.Writer)) error {
	if a.opts.JSON {
		return jsonwriter.Write(a.opts.Out, v)
	}
	tw := tabwriter.NewWriter(a.opts.Out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func (a *app) success(ctx context.Context, format string, args ...any) {
	if a.opts.JSON {
		return
	}
	a.notifier.Notify(ctx, notify.Notification{Level: notify.LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.newFlagSet("login")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return a.usageError("usage: finfront login <email>")
	}

	password := os.Getenv("FINFRONT_PASSWORD")
	if password == "" {
		if !a.opts.JSON {
			fmt.Fprint(a.opts.ErrOut, "Password: ")
		}
		line, err := bufio.NewReader(a.opts.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	res, err := a.fin.Auth.SignIn(ctx, fs.Arg(0), password)
	if err != nil {
		return err
	}
	a.api.ResetSessionState()

	if res.User != nil {
		a.success(ctx, "Signed in as %s", res.User.Email)
		if a.opts.JSON {
			return jsonwriter.Write(a.opts.Out, res.User)
		}
		return nil
	}
	a.success(ctx, "Signed in")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.fin.Auth.SignOut(ctx); err != nil {
		var httpErr *apiclient.HTTPError
		if !errors.As(err, &httpErr) && !errors.Is(err, apierror.ErrSessionExpired) {
			return err
		}
		// The backend session may already be gone; forget it locally anyway
		log.LogDebugWithFields("main", "Sign-out call failed", map[string]any{"error": err.Error()})
		if err := a.sess.Clear(ctx); err != nil {
			return err
		}
	}
	a.success(ctx, "Signed out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	me, err := a.fin.Auth.Me(ctx)
	if err != nil {
		return err
	}
	return a.print(me, func(w io.Writer) {
		fmt.Fprintf(w, "ID\t%s\n", me.ID)
		fmt.Fprintf(w, "Email\t%s\n", me.Email)
		if me.Name != "" {
			fmt.Fprintf(w, "Name\t%s\n", me.Name)
		}
		if me.Role != "" {
			fmt.Fprintf(w, "Role\t%s\n", me.Role)
		}
	})
}

func (a *app) token(ctx context.Context) error {
	tok, err := a.api.TokenSource(ctx).Token()
	if errors.Is(err, session.ErrNoSession) {
		return fmt.Errorf("not signed in: run finfront login")
	}
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return jsonwriter.Write(a.opts.Out, map[string]any{
			"accessToken": tok.AccessToken,
			"tokenType":   tok.Type(),
			"expiry":      tok.Expiry,
		})
	}
	fmt.Fprintln(a.opts.Out, tok.AccessToken)
	return nil
}

func (a *app) tx(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError("usage: finfront tx list|add|rm|classify")
	}
	switch args[0] {
	case "list":
		return a.txList(ctx, args[1:])
	case "add":
		return a.txAdd(ctx, args[1:])
	case "rm":
		if len(args) != 2 {
			return a.usageError("usage: finfront tx rm <id>")
		}
		if err := a.fin.Transactions.Delete(ctx, args[1]); err != nil {
			return err
		}
		a.success(ctx, "Deleted transaction %s", args[1])
		return nil
	case "classify":
		if len(args) != 3 {
			return a.usageError("usage: finfront tx classify <id> <category-id>")
		}
		tx, err := a.fin.Transactions.Classify(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		return a.print(tx, func(w io.Writer) { writeTransactions(w, []finance.Transaction{*tx}) })
	default:
		return a.usageError("unknown tx command %q", args[0])
	}
}

func (a *app) txList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("tx list")
	rangeFlag := fs.String("range", "", "YYYY-MM-DD..YYYY-MM-DD, this-month or last-30-days")
	typ := fs.String("type", "", "income, expense or transfer")
	source := fs.String("source", "", "account source id")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	rng, err := finance.ParseDateRange(*rangeFlag, a.now())
	if err != nil {
		return err
	}
	result, err := a.fin.Transactions.List(ctx, finance.TransactionFilter{
		Range:      rng,
		Type:       finance.TransactionType(*typ),
		SourceID:   *source,
		PageParams: finance.PageParams{Page: *page, Limit: *limit},
	})
	if err != nil {
		return err
	}
	return a.print(result, func(w io.Writer) {
		writeTransactions(w, result.Items)
		if p := result.Pagination; p != nil && p.TotalPages > 1 {
			fmt.Fprintf(w, "\npage %d of %d (%d total)\n", p.Page, p.TotalPages, p.Total)
		}
	})
}

func (a *app) txAdd(ctx context.Context, args []string) error {
	fs := a.newFlagSet("tx add")
	typ := fs.String("type", string(finance.TransactionExpense), "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 45000 or 12.50")
	desc := fs.String("desc", "", "description")
	category := fs.String("category", "", "category id")
	source := fs.String("source", "", "account source id")
	date := fs.String("date", "", "YYYY-MM-DD (default today)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return a.usageError("invalid -amount %q", *amount)
	}
	in := finance.TransactionInput{
		Type:            finance.TransactionType(*typ),
		Amount:          amt,
		Description:     *desc,
		CategoryID:      *category,
		AccountSourceID: *source,
	}
	if *date != "" {
		d, err := time.ParseInLocation(finance.DateLayout, *date, time.Local)
		if err != nil {
			return a.usageError("invalid -date %q", *date)
		}
		in.Date = &d
	}

	tx, err := a.fin.Transactions.Create(ctx, in)
	if err != nil {
		return err
	}
	a.success(ctx, "Recorded %s of %s", tx.Type, tx.Amount)
	if a.opts.JSON {
		return jsonwriter.Write(a.opts.Out, tx)
	}
	return nil
}

func writeTransactions(w io.Writer, txs []finance.Transaction) {
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format(finance.DateLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, date, tx.Type, tx.Amount, tx.CategoryName, tx.Description)
	}
}

func (a *app) accounts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError("usage: finfront accounts list|transfer")
	}
	switch args[0] {
	case "list":
		result, err := a.fin.AccountSources.List(ctx, finance.PageParams{})
		if err != nil {
			return err
		}
		return a.print(result.Items, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE")
			for _, s := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\n", s.ID, s.Name, s.Type, s.Balance, s.Currency)
			}
		})
	case "transfer":
		fs := a.newFlagSet("accounts transfer")
		note := fs.String("note", "", "note")
		if err := a.parse(fs, args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 3 {
			return a.usageError("usage: finfront accounts transfer [-note N] <from> <to> <amount>")
		}
		amt, err := decimal.NewFromString(fs.Arg(2))
		if err != nil {
			return a.usageError("invalid amount %q", fs.Arg(2))
		}
		tx, err := a.fin.AccountSources.Transfer(ctx, finance.TransferInput{
			FromID: fs.Arg(0),
			ToID:   fs.Arg(1),
			Amount: amt,
			Note:   *note,
		})
		if err != nil {
			return err
		}
		a.success(ctx, "Transferred %s", amt)
		if a.opts.JSON {
			return jsonwriter.Write(a.opts.Out, tx)
		}
		return nil
	default:
		return a.usageError("unknown accounts command %q", args[0])
	}
}

func (a *app) budgets(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "list" {
		return a.usageError("usage: finfront budgets list")
	}
	result, err := a.fin.Budgets.List(ctx, finance.PageParams{})
	if err != nil {
		return err
	}
	return a.print(result.Items, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPLANNED\tSPENT\tREMAINING")
		for _, b := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Amount, b.Spent, b.Remaining())
		}
	})
}

func (a *app) targets(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "list" {
		return a.usageError("usage: finfront targets list")
	}
	result, err := a.fin.Targets.List(ctx, finance.PageParams{})
	if err != nil {
		return err
	}
	return a.print(result.Items, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tSAVED\tTARGET\tPROGRESS")
		for _, t := range result.Items {
			pct := t.Progress().Mul(decimal.NewFromInt(100)).Round(0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\n", t.ID, t.Name, t.CurrentAmount, t.TargetAmount, pct)
		}
	})
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usageError("usage: finfront admin users|admins|permissions")
	}
	switch args[0] {
	case "users", "admins":
		list := a.fin.Admin.ListUsers
		if args[0] == "admins" {
			list = a.fin.Admin.ListAdmins
		}
		result, err := list(ctx, finance.PageParams{})
		if err != nil {
			return err
		}
		return a.print(result.Items, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tEMAIL\tROLE\tSTATUS")
			for _, u := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.Status)
			}
		})
	case "permissions":
		perms, err := a.fin.Admin.ListPermissions(ctx)
		if err != nil {
			return err
		}
		return a.print(perms, func(w io.Writer) {
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, p := range perms {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
			}
		})
	default:
		return a.usageError("unknown admin command %q", args[0])
	}
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := a.newFlagSet("chat")
	sessionID := fs.String("session", "", "chat session id to continue")
	confirm := fs.Bool("confirm", false, "record the proposed transaction")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return a.usageError("usage: finfront chat [-session ID] [-confirm] <text>")
	}

	reply, err := a.fin.Chat.Send(ctx, *sessionID, text)
	if err != nil {
		return err
	}
	var recorded *finance.Transaction
	if *confirm && reply.Draft != nil {
		if recorded, err = a.fin.Chat.Confirm(ctx, reply.SessionID, *reply.Draft); err != nil {
			return err
		}
	}

	if a.opts.JSON {
		return jsonwriter.Write(a.opts.Out, map[string]any{"reply": reply, "recorded": recorded})
	}
	fmt.Fprintln(a.opts.Out, reply.Reply)
	if d := reply.Draft; d != nil && recorded == nil {
		fmt.Fprintf(a.opts.Out, "\nDraft: %s %s %s\n", d.Type, d.Amount, d.Description)
		fmt.Fprintf(a.opts.Out, "Run finfront chat -session %s -confirm <text> to record it\n", reply.SessionID)
	}
	if recorded != nil {
		a.success(ctx, "Recorded %s of %s", recorded.Type, recorded.Amount)
	}
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := a.newFlagSet("summary")
	rangeFlag := fs.String("range", finance.PresetThisMonth, "YYYY-MM-DD..YYYY-MM-DD, this-month or last-30-days")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	rng, err := finance.ParseDateRange(*rangeFlag, a.now())
	if err != nil {
		return err
	}

	txs, err := a.fin.Transactions.All(ctx, finance.TransactionFilter{Range: rng})
	if err != nil {
		return err
	}

	s := finance.Summarize(txs)
	return a.print(s, func(w io.Writer) {
		fmt.Fprintf(w, "Range\t%s\n", rng)
		fmt.Fprintf(w, "Income\t%s\n", s.Income)
		fmt.Fprintf(w, "Expense\t%s\n", s.Expense)
		fmt.Fprintf(w, "Net\t%s\n", s.Net)
		if len(s.ByCategory) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "CATEGORY\tSPENT")
			for _, c := range s.ByCategory {
				fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Amount)
			}
		}
	})
}
