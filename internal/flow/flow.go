package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/merchant_payouts/internal/logging"
	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/internal/stepup"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

// DefaultIBANDebounce is the quiet period before a typed IBAN is validated.
const DefaultIBANDebounce = 500 * time.Millisecond

var (
	// ErrInvalidTransition is returned for an event the current screen does
	// not accept. The state is left untouched.
	ErrInvalidTransition = errors.New("invalid payout flow transition")
	// ErrClosed is returned once the flow has been closed.
	ErrClosed = errors.New("payout flow closed")
)

// Screen is the step of the payout flow.
type Screen string

const (
	ScreenForm       Screen = "form"
	ScreenConfirming Screen = "confirming"
	ScreenSuccess    Screen = "success"
	ScreenFailed     Screen = "failed"
)

// State is a snapshot of the flow. Mutating it does not affect the flow.
type State struct {
	Screen       Screen
	Form         payout.FormInput
	Request      *payout.ValidatedRequest
	ErrorMessage string
	Submitting   bool
	Payout       *dto.Payout
}

// Config wires the flow to its collaborators. Creator is required.
type Config struct {
	Platform payout.Platform
	Creator  PayoutCreator
	Cache    BalanceCache
	Gate     *stepup.Gate
	Rates    RateConverter
	// DeviceID returns the device identifier, or "" when unavailable.
	DeviceID func() string
	// NewIdempotencyKey defaults to random UUIDs.
	NewIdempotencyKey func() string
	IBANDebounce      time.Duration
	Logger            *slog.Logger
}

// Flow is the payout workflow: form, confirmation, then success or failure.
// It is safe for concurrent use.
type Flow struct {
	cfg      Config
	debounce *Debouncer

	mu            sync.Mutex
	state         State
	ibanError     string
	closed        bool
	subscriptions []Subscription
}

// New creates a flow on the form screen.
func New(cfg Config) *Flow {
	if cfg.Platform == "" {
		cfg.Platform = payout.PlatformMobile
	}
	if cfg.Gate == nil {
		cfg.Gate = stepup.NewGate(nil, cfg.Platform)
	}
	if cfg.Rates == nil {
		cfg.Rates = ParityRates{}
	}
	if cfg.DeviceID == nil {
		cfg.DeviceID = func() string { return "" }
	}
	if cfg.NewIdempotencyKey == nil {
		cfg.NewIdempotencyKey = uuid.NewString
	}
	if cfg.IBANDebounce <= 0 {
		cfg.IBANDebounce = DefaultIBANDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Flow{
		cfg:      cfg,
		debounce: NewDebouncer(cfg.IBANDebounce),
		state:    State{Screen: ScreenForm, Form: emptyForm()},
	}
}

func emptyForm() payout.FormInput {
	return payout.FormInput{Currency: dto.DefaultCurrency}
}

// State returns a snapshot of the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Submit validates the form. Invalid input keeps the flow on the form screen
// and returns the field errors; valid input moves it to confirming.
func (f *Flow) Submit(in payout.FormInput) (payout.FieldErrors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accepts(ScreenForm); err != nil {
		return payout.FieldErrors{}, err
	}

	f.state.Form = in
	req, fieldErrs := payout.Validate(in, f.cfg.Platform)
	if !fieldErrs.Empty() {
		return fieldErrs, nil
	}
	f.state.Request = &req
	f.moveTo(ScreenConfirming)
	return payout.FieldErrors{}, nil
}

// Cancel returns from confirming to the form, keeping the entered values.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accepts(ScreenConfirming); err != nil {
		return err
	}
	f.state.Request = nil
	f.moveTo(ScreenForm)
	return nil
}

// Confirm runs the step-up gate, the balance check and the payout
// submission in that order, then lands on success or failed. The
// submission is never retried.
func (f *Flow) Confirm(ctx context.Context) (State, error) {
	f.mu.Lock()
	if err := f.accepts(ScreenConfirming); err != nil {
		f.mu.Unlock()
		return State{}, err
	}
	f.state.Submitting = true
	req := *f.state.Request
	f.mu.Unlock()

	p, err := f.execute(ctx, req)

	if err == nil && f.cfg.Cache != nil {
		f.cfg.Cache.InvalidateMerchant()
		f.cfg.Cache.PatchActivityFirstPage(payout.ActivityFromPayout(p))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.cfg.Logger.Debug("discarding payout result after close", slog.Bool("success", err == nil))
		return State{}, ErrClosed
	}
	f.state.Submitting = false
	if err != nil {
		f.state.ErrorMessage = f.message(err)
		f.cfg.Logger.Warn("payout failed",
			slog.String("reason", f.state.ErrorMessage),
			slog.Any("error", err),
		)
		f.moveTo(ScreenFailed)
		return f.snapshot(), nil
	}
	f.state.Payout = &p
	f.cfg.Logger.Info("payout created",
		slog.String("payout_id", p.ID),
		slog.String("status", string(p.Status)),
		slog.String("iban", payout.MaskIBAN(p.IBAN)),
	)
	f.moveTo(ScreenSuccess)
	return f.snapshot(), nil
}

func (f *Flow) execute(ctx context.Context, req payout.ValidatedRequest) (dto.Payout, error) {
	if err := f.cfg.Gate.Authorize(ctx, req.Amount); err != nil {
		return dto.Payout{}, err
	}

	if f.cfg.Cache != nil {
		if m, ok := f.cfg.Cache.PeekMerchant(); ok {
			amount, err := f.cfg.Rates.Convert(req.Amount, req.Currency, m.Currency)
			if err != nil {
				return dto.Payout{}, err
			}
			if amount > m.AvailableBalance {
				return dto.Payout{}, payout.ErrInsufficientFunds
			}
		}
	}

	return f.cfg.Creator.CreatePayout(ctx, dto.CreatePayoutRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		IBAN:     req.IBAN,
		DeviceID: f.cfg.DeviceID(),
	}, f.cfg.NewIdempotencyKey())
}

func (f *Flow) message(err error) string {
	if msg := f.cfg.Gate.Message(err); msg != "" {
		return msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return payout.NetworkErrorMessage
	}
	return payout.Classify(err)
}

// CreateAnother leaves the success screen for an empty form.
func (f *Flow) CreateAnother() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accepts(ScreenSuccess); err != nil {
		return err
	}
	f.state.Request = nil
	f.state.Payout = nil
	f.state.Form = emptyForm()
	f.ibanError = ""
	f.moveTo(ScreenForm)
	return nil
}

// TryAgain leaves the failed screen for the form, keeping the last values.
func (f *Flow) TryAgain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accepts(ScreenFailed); err != nil {
		return err
	}
	f.state.ErrorMessage = ""
	f.state.Request = nil
	f.moveTo(ScreenForm)
	return nil
}

// FormattedAmount renders the amount being paid out, e.g. "£400.00".
func (f *Flow) FormattedAmount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.state.Request; r != nil {
		return payout.FormatAmount(r.Amount, r.Currency)
	}
	if f.state.Form.Amount == "" {
		return ""
	}
	return payout.FormatMajor(f.state.Form.Amount, f.state.Form.Currency)
}

// TypeIBAN records a keystroke in the IBAN field. The field is validated
// once typing pauses.
func (f *Flow) TypeIBAN(s string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.state.Form.IBAN = s
	f.mu.Unlock()

	f.debounce.Trigger(func() {
		msg := ""
		if s != "" {
			_, msg = payout.ValidateIBAN(s)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.closed && f.state.Form.IBAN == s {
			f.ibanError = msg
		}
	})
}

// IBANError returns the message from the last debounced IBAN validation.
func (f *Flow) IBANError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ibanError
}

// Track ties a listener registration to the flow's lifetime.
func (f *Flow) Track(sub Subscription) {
	if sub == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.Remove()
		return
	}
	f.subscriptions = append(f.subscriptions, sub)
	f.mu.Unlock()
}

// WatchScreenshots registers fn with src for as long as the flow is open.
func (f *Flow) WatchScreenshots(src ScreenshotSource, fn func()) {
	if src == nil {
		return
	}
	f.Track(src.OnScreenshot(fn))
}

// Close releases timers and listeners. A Confirm still running completes
// its network call but its result no longer reaches the state.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := f.subscriptions
	f.subscriptions = nil
	f.mu.Unlock()

	f.debounce.Stop()
	for _, s := range subs {
		s.Remove()
	}
}

func (f *Flow) accepts(screen Screen) error {
	if f.closed {
		return ErrClosed
	}
	if f.state.Screen != screen || f.state.Submitting {
		return ErrInvalidTransition
	}
	return nil
}

func (f *Flow) moveTo(screen Screen) {
	f.cfg.Logger.Debug("payout flow transition",
		slog.String("from", string(f.state.Screen)),
		slog.String("to", string(screen)),
	)
	f.state.Screen = screen
}

func (f *Flow) snapshot() State {
	s := f.state
	if s.Request != nil {
		r := *s.Request
		s.Request = &r
	}
	if s.Payout != nil {
		p := *s.Payout
		s.Payout = &p
	}
	return s
}
