package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
	"budgetlog/internal/metrics"
	"budgetlog/internal/session"
	"budgetlog/internal/store"
	"budgetlog/internal/view"
)

// Archiver persists the whole record list under one slot.
type Archiver interface {
	Save(ctx context.Context, records []core.Transaction) error
	Load(ctx context.Context) ([]core.Transaction, error)
}

// Notifier delivers notices outside the page, e.g. to a message broker.
type Notifier interface {
	Notify(ctx context.Context, n core.Notification) error
}

// Vocabulary is the set of categories offered by the form.
type Vocabulary interface {
	Names() []string
	Contains(name string) bool
}

type Deps struct {
	Archive    Archiver
	Notifier   Notifier // optional
	Vocabulary Vocabulary
	Metrics    *metrics.Metrics // optional
	Logger     *applog.Logger   // optional
}

type Config struct {
	Currency   string
	SeedDemo   bool
	SignPolicy core.SignPolicy
	Clock      func() time.Time
}

// Tracker owns the session state and runs one command at a time:
// mutate, persist, summarize, render.
type Tracker struct {
	mu sync.Mutex

	store    *store.Store
	session  *session.Controller
	archive  Archiver
	notifier Notifier
	vocab    Vocabulary
	metrics  *metrics.Metrics
	logger   *applog.Logger

	currency string
	seedDemo bool
	now      func() time.Time

	filter    string
	formInput core.Input
	formError string
}

func NewTracker(deps Deps, cfg Config) (*Tracker, error) {
	if deps.Archive == nil {
		return nil, errors.New("tracker needs an archive")
	}
	if deps.Vocabulary == nil {
		return nil, errors.New("tracker needs a category vocabulary")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentTracker)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		store: store.New(
			store.WithClock(now),
			store.WithSignPolicy(cfg.SignPolicy),
			store.WithCategories(deps.Vocabulary.Contains),
		),
		session:  session.New(),
		archive:  deps.Archive,
		notifier: notifier,
		vocab:    deps.Vocabulary,
		metrics:  deps.Metrics,
		logger:   logger,
		currency: cfg.Currency,
		seedDemo: cfg.SeedDemo,
		now:      now,
		filter:   core.FilterAll,
	}, nil
}

// Start loads the saved records. A failed load leaves an empty session;
// an empty session is seeded with demo records when enabled.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.archive.Load(ctx)
	if err != nil {
		t.metrics.ObservePersistenceFailure(applog.OpLoad)
		t.logger.WarnContext(ctx, "Could not load saved transactions, starting empty",
			applog.NewFields().WithOperation(applog.OpLoad).WithError(err).WithErrorType(applog.ErrorTypePersistence).ToSlice()...)
		records = nil
	}
	if n := t.store.Replace(records); n > 0 {
		t.logger.WarnContext(ctx, "Reassigned duplicate transaction ids", applog.FieldCount, n)
	}
	t.logger.InfoContext(ctx, "Loaded transactions", applog.FieldCount, t.store.Len())

	if t.store.Len() == 0 && t.seedDemo {
		if err := t.seed(); err != nil {
			return fmt.Errorf("seed demo records: %w", err)
		}
		t.logger.InfoContext(ctx, "Seeded demo transactions", applog.FieldOperation, applog.OpSeed)
		if err := t.persist(ctx); err != nil {
			t.logger.WarnContext(ctx, "Demo records kept in memory only", applog.FieldError, err.Error())
		}
	}
	t.metrics.SetTransactions(t.store.Len())
	return nil
}

// seed adds the demo records whose category the vocabulary offers.
func (t *Tracker) seed() error {
	for _, in := range DemoRecords() {
		if !t.vocab.Contains(in.Category) {
			continue
		}
		if _, err := t.store.Add(in); err != nil {
			return err
		}
	}
	return nil
}

// DemoRecords are the records a fresh install starts with.
func DemoRecords() []core.Input {
	return []core.Input{
		{Text: "Demo Salary", Amount: "5000", Category: "Salary", Type: core.Income},
		{Text: "Demo Food", Amount: "-300", Category: "Food", Type: core.Expense},
	}
}

// Handle runs cmd to completion and returns the re-rendered page. The only
// error returned is for a command kind it does not know; everything else is
// handled here and reported through Result.
//
// The notice is published after the command lock is released, so a slow
// notifier delays only this caller.
func (t *Tracker) Handle(ctx context.Context, cmd Command) (Result, error) {
	res, err := t.apply(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if res.Notice != nil {
		t.publish(ctx, *res.Notice)
	}
	return res, nil
}

// apply mutates, persists and renders under the command lock.
func (t *Tracker) apply(ctx context.Context, cmd Command) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res Result
	switch cmd.Kind {
	case CmdView:
	case CmdSubmit:
		res = t.submit(ctx, cmd.Input)
	case CmdBeginEdit:
		res = t.beginEdit(ctx, cmd.ID)
	case CmdCancelEdit:
		t.session.Cancel()
		t.clearForm()
	case CmdDelete:
		res = t.delete(ctx, cmd.ID)
	case CmdFilter:
		t.filter = cmd.Category
		if t.filter == "" {
			t.filter = core.FilterAll
		}
	default:
		t.metrics.ObserveCommand(cmd.Kind.String(), "rejected")
		return Result{}, fmt.Errorf("unknown command kind %d", cmd.Kind)
	}

	t.metrics.ObserveCommand(cmd.Kind.String(), outcome(res.Err))
	t.metrics.SetTransactions(t.store.Len())
	res.Page = t.render()
	return res, nil
}

func (t *Tracker) submit(ctx context.Context, in core.Input) Result {
	intent := t.session.Resolve()

	var (
		rec core.Transaction
		err error
	)
	if intent.Op == session.OpUpdate {
		rec, err = t.store.Update(intent.ID, in)
	} else {
		rec, err = t.store.Add(in)
	}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		t.formInput = in
		t.formError = verr.Hint()
		t.logger.DebugContext(ctx, "Rejected form input",
			"field", verr.Field, applog.FieldErrorType, applog.ErrorTypeValidation)
		return Result{Err: err}
	case core.IsNotFound(err):
		t.session.Abandon()
		t.clearForm()
		return Result{Err: err, Notice: t.notice(EventMissing, intent.ID, MsgMissing, core.LevelWarning)}
	case err != nil:
		return Result{Err: err}
	}

	op, event, msg := applog.OpCreate, EventAdded, MsgAdded
	if intent.Op == session.OpUpdate {
		op, event, msg = applog.OpUpdate, EventUpdated, MsgUpdated
		t.session.Completed()
	}
	t.clearForm()
	t.logger.InfoContext(ctx, "Saved transaction",
		applog.NewFields().WithOperation(op).
			WithTransaction(rec.ID, rec.Category, string(rec.Type), rec.Amount.String()).ToSlice()...)

	if err := t.persist(ctx); err != nil {
		return Result{Err: err, Notice: t.notice(EventPersistFailed, rec.ID, MsgPersistFailed, core.LevelWarning)}
	}
	return Result{Notice: t.notice(event, rec.ID, msg, core.LevelSuccess)}
}

func (t *Tracker) beginEdit(ctx context.Context, id int64) Result {
	rec, err := t.session.Begin(t.store, id)
	if err != nil {
		t.logger.DebugContext(ctx, "Edit target missing", applog.FieldTransactionID, id)
		return Result{Err: err, Notice: t.notice(EventMissing, id, MsgMissing, core.LevelWarning)}
	}
	t.formInput = rec.Input()
	t.formError = ""
	return Result{}
}

func (t *Tracker) delete(ctx context.Context, id int64) Result {
	if !t.store.Remove(id) {
		return Result{}
	}
	if t.session.Deleted(id) {
		t.clearForm()
	}
	t.logger.InfoContext(ctx, "Deleted transaction",
		applog.FieldOperation, applog.OpDelete, applog.FieldTransactionID, id)

	if err := t.persist(ctx); err != nil {
		return Result{Err: err, Notice: t.notice(EventPersistFailed, id, MsgPersistFailed, core.LevelWarning)}
	}
	return Result{Notice: t.notice(EventDeleted, id, MsgDeleted, core.LevelInfo)}
}

func (t *Tracker) persist(ctx context.Context) error {
	if err := t.archive.Save(ctx, t.store.All()); err != nil {
		t.metrics.ObservePersistenceFailure(applog.OpSave)
		t.logger.ErrorContext(ctx, "Failed to persist transactions",
			applog.NewFields().WithOperation(applog.OpSave).WithError(err).WithErrorType(applog.ErrorTypePersistence).ToSlice()...)
		return err
	}
	return nil
}

// publish hands n to the notifier. Failures are logged only.
func (t *Tracker) publish(ctx context.Context, n core.Notification) {
	err := t.notifier.Notify(ctx, n)
	t.metrics.ObserveNotification(err == nil)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to publish notification",
			"event", n.Event, applog.FieldError, err.Error(), applog.FieldErrorType, applog.ErrorTypeNetwork)
	}
}

func (t *Tracker) notice(event string, id int64, msg string, level core.Level) *core.Notification {
	return &core.Notification{
		Event:         event,
		TransactionID: id,
		Message:       msg,
		Level:         level,
		Timestamp:     t.now(),
	}
}

func (t *Tracker) clearForm() {
	t.formInput = core.Input{}
	t.formError = ""
}

func (t *Tracker) render() view.Page {
	target, _ := t.session.Target()
	return view.Render(view.State{
		Records:    t.store.List(t.filter),
		Summary:    core.Summarize(t.store.All()),
		Filter:     t.filter,
		Categories: t.vocab.Names(),
		Currency:   t.currency,
		Form: view.FormState{
			Mode:   t.session.Mode(),
			Target: target,
			Values: t.formInput,
			Error:  t.formError,
		},
	})
}

// Snapshot returns a copy of every record in insertion order.
func (t *Tracker) Snapshot() []core.Transaction {
	return t.store.All()
}

// Mode reports the edit-session mode.
func (t *Tracker) Mode() session.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Mode()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsValidation(err):
		return "invalid"
	case core.IsNotFound(err):
		return "not_found"
	case core.IsPersistence(err):
		return "persistence_error"
	default:
		return "error"
	}
}
