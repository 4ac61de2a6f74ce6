package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/merchant_payouts/internal/cache"
	"github.com/congo-pay/merchant_payouts/internal/config"
	"github.com/congo-pay/merchant_payouts/internal/flow"
	"github.com/congo-pay/merchant_payouts/internal/logging"
	"github.com/congo-pay/merchant_payouts/internal/merchantapi"
	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/internal/stepup"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

const usage = `usage: payout <command> [flags]

commands:
  balance                          show available and pending balance
  activity [-pages n]              list recent activity
  send -amount a -iban i [-currency GBP|EUR] [-yes]
                                   send a payout
  status <payout id>               show a payout`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newCLI(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "api client: %v\n", err)
		os.Exit(1)
	}

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUnknownCommand) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

// newCLI wires the API client and cache, and sweeps idle cache entries
// until ctx is done.
func newCLI(ctx context.Context, cfg config.Client, logger *slog.Logger, in io.Reader, out io.Writer) (*cli, error) {
	api, err := merchantapi.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, err
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = -1
	}
	c := cache.New(api, cache.Options{
		StaleTime: cfg.StaleTime,
		GCTime:    cfg.GCTime,
		Retries:   retries,
		Logger:    logger,
	})
	go c.Run(ctx, sweepInterval(cfg.GCTime))

	return &cli{cfg: cfg, api: api, cache: c, logger: logger, in: bufio.NewReader(in), out: out}, nil
}

func sweepInterval(gcTime time.Duration) time.Duration {
	if gcTime <= 0 || gcTime > time.Minute {
		return time.Minute
	}
	return gcTime
}

type cli struct {
	cfg    config.Client
	api    *merchantapi.Client
	cache  *cache.Cache
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
}

func (a *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "balance":
		return a.balance(ctx)
	case "activity":
		return a.activity(ctx, args)
	case "send":
		return a.send(ctx, args)
	case "status":
		return a.status(ctx, args)
	}
	return errUnknownCommand
}

func (a *cli) balance(ctx context.Context) error {
	m, err := a.cache.Merchant(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Available: %s\n", payout.FormatAmount(m.AvailableBalance, m.Currency))
	fmt.Fprintf(a.out, "Pending:   %s\n", payout.FormatAmount(m.PendingBalance, m.Currency))
	return nil
}

func (a *cli) activity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	pages := fs.Int("pages", 1, "number of pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.cache.FirstPage(ctx); err != nil {
		return err
	}
	for i := 1; i < *pages && a.cache.HasMore(); i++ {
		if _, err := a.cache.NextPage(ctx); err != nil {
			if errors.Is(err, cache.ErrNoMorePages) {
				break
			}
			return err
		}
	}

	for _, item := range a.cache.Items() {
		fmt.Fprintf(a.out, "%s  %-10s %-9s %12s  %s\n",
			item.Date.Format("2006-01-02"),
			payout.Capitalize(string(item.Type)),
			payout.Capitalize(string(item.Status)),
			payout.FormatAmount(item.Amount, item.Currency),
			item.Description,
		)
	}
	if a.cache.HasMore() {
		fmt.Fprintln(a.out, "(more available, use -pages)")
	}
	return nil
}

func (a *cli) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	amount := fs.String("amount", "", "amount in major units, e.g. 400 or 12.50")
	currency := fs.String("currency", string(dto.DefaultCurrency), "GBP or EUR")
	iban := fs.String("iban", "", "destination IBAN")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cur, ok := payout.ParseCurrency(*currency)
	if !ok {
		return fmt.Errorf("unsupported currency %q: want GBP or EUR", *currency)
	}

	platform := payout.ParsePlatform(a.cfg.Platform)
	var auth stepup.Authenticator
	if a.cfg.Biometrics {
		auth = stepup.AuthenticatorFunc(a.promptBiometric)
	}

	// Warm the balance so the flow can check it before submitting.
	if _, err := a.cache.Merchant(ctx); err != nil {
		a.logger.Warn("balance unavailable", slog.Any("error", err))
	}

	f := flow.New(flow.Config{
		Platform: platform,
		Creator:  a.api,
		Cache:    a.cache,
		Gate:     stepup.NewGate(auth, platform),
		DeviceID: a.deviceID,
		Logger:   a.logger,
	})
	defer f.Close()

	fieldErrs, err := f.Submit(payout.FormInput{
		Amount:   *amount,
		Currency: cur,
		IBAN:     *iban,
	})
	if err != nil {
		return err
	}
	if !fieldErrs.Empty() {
		return fieldErrs.Err()
	}

	st := f.State()
	fmt.Fprintf(a.out, "Send %s to %s\n", f.FormattedAmount(), payout.MaskIBAN(st.Request.IBAN))
	if !*yes && !a.ask("Confirm? [y/N] ") {
		if err := f.Cancel(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	st, err = f.Confirm(ctx)
	if err != nil {
		return err
	}
	if st.Screen == flow.ScreenFailed {
		return errors.New(st.ErrorMessage)
	}
	fmt.Fprintf(a.out, "Payout %s %s.\n", st.Payout.ID, st.Payout.Status)
	return nil
}

func (a *cli) status(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("status requires a payout id")
	}
	p, err := a.api.Payout(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %s  %s  %s\n",
		p.ID, p.Status, payout.FormatAmount(p.Amount, p.Currency), payout.MaskIBAN(p.IBAN))
	return nil
}

func (a *cli) promptBiometric(_ context.Context, reason string) (bool, error) {
	return a.ask(reason + ". Authenticate? [y/N] "), nil
}

func (a *cli) ask(prompt string) bool {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *cli) deviceID() string {
	if a.cfg.DeviceID != "" {
		return a.cfg.DeviceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(host)).String()
}
