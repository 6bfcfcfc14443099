package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
	"budgetlog/internal/metrics"
	"budgetlog/internal/session"
	"budgetlog/internal/storage"
	"budgetlog/internal/taxonomy"
	"budgetlog/internal/view"
)

type recordingNotifier struct {
	notes []core.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n core.Notification) error {
	r.notes = append(r.notes, n)
	return r.err
}

// gatedNotifier blocks in Notify until release is closed.
type gatedNotifier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedNotifier) Notify(ctx context.Context, _ core.Notification) error {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fixture struct {
	tracker  *Tracker
	kv       *storage.MemoryStore
	archive  *storage.Archive
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, seed bool, quota int) *fixture {
	t.Helper()
	kv := storage.NewMemoryStore(quota)
	f := &fixture{
		kv:       kv,
		archive:  storage.NewArchive(kv, "", applog.Discard()),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(nil),
	}
	at := time.Date(2025, 11, 20, 14, 30, 0, 0, time.UTC)
	tr, err := NewTracker(Deps{
		Archive:    f.archive,
		Notifier:   f.notifier,
		Vocabulary: taxonomy.New(taxonomy.DefaultCategories),
		Metrics:    f.metrics,
		Logger:     applog.Discard(),
	}, Config{
		Currency: "₹",
		SeedDemo: seed,
		Clock:    func() time.Time { return at },
	})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	f.tracker = tr
	return f
}

func (f *fixture) handle(t *testing.T, cmd Command) Result {
	t.Helper()
	res, err := f.tracker.Handle(context.Background(), cmd)
	require.NoError(t, err)
	return res
}

func (f *fixture) saved(t *testing.T) []core.Transaction {
	t.Helper()
	records, err := f.archive.Load(context.Background())
	require.NoError(t, err)
	return records
}

func expense(text, amount, category string) core.Input {
	return core.Input{Text: text, Amount: amount, Category: category, Type: core.Expense}
}

func TestSeedsDemoRecordsOnFirstStart(t *testing.T) {
	f := newFixture(t, true, 0)

	res := f.handle(t, View())
	require.Len(t, res.Page.Rows, 2)
	assert.Equal(t, "Demo Salary", res.Page.Rows[0].Text)
	assert.Equal(t, "+₹5000", res.Page.Rows[0].Amount)
	assert.Equal(t, "-₹300", res.Page.Rows[1].Amount)
	assert.NotEqual(t, res.Page.Rows[0].ID, res.Page.Rows[1].ID)
	assert.Equal(t, view.Totals{Income: "₹5000.00", Expense: "₹300.00", Balance: "₹4700.00"}, res.Page.Summary)

	assert.Len(t, f.saved(t), 2, "demo records are persisted")
}

func TestStartKeepsSavedRecords(t *testing.T) {
	f := newFixture(t, true, 0)
	saved := f.saved(t)

	tr, err := NewTracker(Deps{
		Archive:    f.archive,
		Vocabulary: taxonomy.New(taxonomy.DefaultCategories),
		Logger:     applog.Discard(),
	}, Config{SeedDemo: true})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	assert.Equal(t, len(saved), len(tr.Snapshot()), "no second seeding")
	for i := range saved {
		assert.True(t, saved[i].Equal(tr.Snapshot()[i]))
	}
}

func TestSubmitAddsAndPersists(t *testing.T) {
	f := newFixture(t, false, 0)

	res := f.handle(t, Submit(core.Input{Text: "Salary", Amount: "5000", Category: "Salary", Type: core.Income}))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Notice)
	assert.Equal(t, MsgAdded, res.Notice.Message)
	assert.Equal(t, core.LevelSuccess, res.Notice.Level)

	require.Len(t, res.Page.Rows, 1)
	assert.Equal(t, "income-item", res.Page.Rows[0].Class)
	assert.Equal(t, "₹5000.00", res.Page.Summary.Balance)
	assert.Empty(t, res.Page.Form.Text, "form is cleared after a successful add")

	require.Len(t, f.saved(t), 1)
	require.Len(t, f.notifier.notes, 1)
	assert.Equal(t, EventAdded, f.notifier.notes[0].Event)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("submit", "ok")))
}

func TestDeleteUpdatesTotals(t *testing.T) {
	f := newFixture(t, true, 0)
	food := f.tracker.Snapshot()[1]

	res := f.handle(t, Delete(food.ID))
	require.NotNil(t, res.Notice)
	assert.Equal(t, MsgDeleted, res.Notice.Message)
	assert.Equal(t, "₹5000.00", res.Page.Summary.Balance)
	assert.Len(t, f.saved(t), 1)

	// deleting again is a no-op without a notice
	res = f.handle(t, Delete(food.ID))
	assert.Nil(t, res.Notice)
	assert.NoError(t, res.Err)
	assert.Len(t, res.Page.Rows, 1)
}

func TestEditFlow(t *testing.T) {
	f := newFixture(t, true, 0)
	food := f.tracker.Snapshot()[1]

	res := f.handle(t, BeginEdit(food.ID))
	require.NoError(t, res.Err)
	assert.True(t, res.Page.Form.Editing)
	assert.Equal(t, view.SubmitUpdate, res.Page.Form.SubmitLabel)
	assert.True(t, res.Page.Form.ShowCancel)
	assert.Equal(t, "Demo Food", res.Page.Form.Text)
	assert.Equal(t, "-300", res.Page.Form.Amount)
	assert.True(t, res.Page.Rows[1].Editing)

	res = f.handle(t, Submit(expense("Demo Food", "-450", "Food")))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Notice)
	assert.Equal(t, MsgUpdated, res.Notice.Message)
	assert.Equal(t, "₹4550.00", res.Page.Summary.Balance)
	assert.Equal(t, session.Idle, f.tracker.Mode())
	assert.Equal(t, view.SubmitAdd, res.Page.Form.SubmitLabel)

	all := f.tracker.Snapshot()
	require.Len(t, all, 2)
	assert.Equal(t, food.ID, all[1].ID)
	assert.NotEmpty(t, all[1].EditedAt)
}

func TestCancelEditReturnsToAdd(t *testing.T) {
	f := newFixture(t, true, 0)
	f.handle(t, BeginEdit(f.tracker.Snapshot()[0].ID))

	res := f.handle(t, CancelEdit())
	assert.False(t, res.Page.Form.Editing)
	assert.Empty(t, res.Page.Form.Text)

	res = f.handle(t, Submit(expense("Bus", "-30", "Transport")))
	require.NoError(t, res.Err)
	assert.Len(t, f.tracker.Snapshot(), 3, "submit after cancel adds")
}

func TestValidationKeepsFormAndSkipsPersistence(t *testing.T) {
	f := newFixture(t, false, 0)

	res := f.handle(t, Submit(expense("", "12", "Food")))
	require.Error(t, res.Err)
	assert.True(t, core.IsValidation(res.Err))
	assert.Nil(t, res.Notice)
	assert.Equal(t, "Please enter a valid description.", res.Page.Form.Error)
	assert.Equal(t, "12", res.Page.Form.Amount, "entered values stay in the form")
	assert.True(t, res.Page.Empty)

	_, err := f.kv.Get(context.Background(), storage.DefaultKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound, "nothing was written")

	res = f.handle(t, Submit(expense("Lunch", "abc", "Food")))
	assert.Equal(t, "Please enter a valid number for the amount.", res.Page.Form.Error)

	res = f.handle(t, Submit(expense("Lunch", "-12", "Rent")))
	assert.ErrorIs(t, res.Err, core.ErrUnknownCategory)
	assert.Equal(t, "Please select a category.", res.Page.Form.Error)
}

func TestGroupedAmountIsRejected(t *testing.T) {
	f := newFixture(t, false, 0)

	for _, amount := range []string{"1,000", "12,50", "+-5"} {
		res := f.handle(t, Submit(expense("Rent", amount, "Bills")))
		assert.ErrorIs(t, res.Err, core.ErrInvalidAmount, amount)
		assert.Equal(t, "Please enter a valid number for the amount.", res.Page.Form.Error)
		assert.Equal(t, amount, res.Page.Form.Amount)
	}
	assert.Empty(t, f.tracker.Snapshot())
}

func TestInvalidSubmitForVanishedRecordEndsEdit(t *testing.T) {
	f := newFixture(t, true, 0)
	food := f.tracker.Snapshot()[1]
	f.handle(t, BeginEdit(food.ID))
	require.True(t, f.tracker.store.Remove(food.ID))

	res := f.handle(t, Submit(expense("", "abc", "Food")))
	assert.True(t, core.IsNotFound(res.Err))
	require.NotNil(t, res.Notice)
	assert.Equal(t, MsgMissing, res.Notice.Message)
	assert.Equal(t, session.Idle, f.tracker.Mode())
	assert.False(t, res.Page.Form.Editing)
	assert.Empty(t, res.Page.Form.Error)

	res = f.handle(t, Submit(expense("Coffee", "-4", "Food")))
	require.NoError(t, res.Err)
	assert.Equal(t, MsgAdded, res.Notice.Message)
}

func TestSlowNotifierDoesNotBlockCommands(t *testing.T) {
	gate := &gatedNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	tr, err := NewTracker(Deps{
		Archive:    storage.NewArchive(storage.NewMemoryStore(0), "", applog.Discard()),
		Notifier:   gate,
		Vocabulary: taxonomy.New(taxonomy.DefaultCategories),
		Logger:     applog.Discard(),
	}, Config{Currency: "₹"})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	done := make(chan Result, 1)
	go func() {
		res, _ := tr.Handle(context.Background(), Submit(expense("Bus", "-30", "Transport")))
		done <- res
	}()
	<-gate.entered

	viewed := make(chan Result, 1)
	go func() {
		res, _ := tr.Handle(context.Background(), View())
		viewed <- res
	}()
	select {
	case res := <-viewed:
		assert.Len(t, res.Page.Rows, 1)
		assert.Equal(t, session.Idle, tr.Mode())
	case <-time.After(2 * time.Second):
		t.Fatal("view blocked behind a pending notification")
	}

	close(gate.release)
	res := <-done
	assert.NoError(t, res.Err)
	assert.Equal(t, MsgAdded, res.Notice.Message)
}

func TestPersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	f := newFixture(t, false, 16)

	res := f.handle(t, Submit(expense("Groceries", "-120", "Food")))
	require.Error(t, res.Err)
	assert.True(t, core.IsPersistence(res.Err))
	require.NotNil(t, res.Notice)
	assert.Equal(t, core.LevelWarning, res.Notice.Level)
	assert.Equal(t, MsgPersistFailed, res.Notice.Message)

	assert.Len(t, res.Page.Rows, 1)
	assert.Len(t, f.tracker.Snapshot(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PersistenceFailures.WithLabelValues(applog.OpSave)))
}

func TestDeleteDuringEditAbortsSession(t *testing.T) {
	f := newFixture(t, true, 0)
	food := f.tracker.Snapshot()[1]
	f.handle(t, BeginEdit(food.ID))

	res := f.handle(t, Delete(food.ID))
	assert.False(t, res.Page.Form.Editing)
	assert.Equal(t, session.Idle, f.tracker.Mode())

	res = f.handle(t, Submit(expense("Coffee", "-4", "Food")))
	require.NoError(t, res.Err)
	assert.Equal(t, MsgAdded, res.Notice.Message)
	assert.Len(t, f.tracker.Snapshot(), 2)
}

func TestDeleteOtherRecordKeepsEdit(t *testing.T) {
	f := newFixture(t, true, 0)
	all := f.tracker.Snapshot()
	f.handle(t, BeginEdit(all[1].ID))

	res := f.handle(t, Delete(all[0].ID))
	assert.True(t, res.Page.Form.Editing)
	assert.Equal(t, all[1].ID, res.Page.Form.Target)
}

func TestBeginEditMissingRecord(t *testing.T) {
	f := newFixture(t, true, 0)

	res := f.handle(t, BeginEdit(12345))
	assert.True(t, core.IsNotFound(res.Err))
	require.NotNil(t, res.Notice)
	assert.Equal(t, core.LevelWarning, res.Notice.Level)
	assert.False(t, res.Page.Form.Editing)
}

func TestFilterLimitsRowsNotTotals(t *testing.T) {
	f := newFixture(t, true, 0)

	res := f.handle(t, Filter("Food"))
	require.Len(t, res.Page.Rows, 1)
	assert.Equal(t, "Demo Food", res.Page.Rows[0].Text)
	assert.Equal(t, "Food", res.Page.Filter)
	assert.Equal(t, "₹4700.00", res.Page.Summary.Balance)

	res = f.handle(t, Filter("Shopping"))
	assert.True(t, res.Page.Empty)
	assert.Equal(t, view.EmptyMessage, res.Page.EmptyText)

	res = f.handle(t, Filter(""))
	assert.Equal(t, core.FilterAll, res.Page.Filter)
	assert.Len(t, res.Page.Rows, 2)
}

func TestUnknownCommandKind(t *testing.T) {
	f := newFixture(t, false, 0)
	_, err := f.tracker.Handle(context.Background(), Command{Kind: CommandKind(99)})
	assert.Error(t, err)
}

func TestNotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, false, 0)
	f.notifier.err = errors.New("broker down")

	res := f.handle(t, Submit(expense("Bus", "-30", "Transport")))
	assert.NoError(t, res.Err)
	assert.Len(t, f.tracker.Snapshot(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("error")))
}

func TestCorruptSlotStartsEmpty(t *testing.T) {
	kv := storage.NewMemoryStore(0)
	require.NoError(t, kv.Put(context.Background(), storage.DefaultKey, []byte("{not json")))

	tr, err := NewTracker(Deps{
		Archive:    storage.NewArchive(kv, "", applog.Discard()),
		Vocabulary: taxonomy.New(taxonomy.DefaultCategories),
		Logger:     applog.Discard(),
	}, Config{})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	assert.Empty(t, tr.Snapshot())
}

func TestSeedSkipsCategoriesOutsideVocabulary(t *testing.T) {
	tr, err := NewTracker(Deps{
		Archive:    storage.NewArchive(storage.NewMemoryStore(0), "", applog.Discard()),
		Vocabulary: taxonomy.New([]string{"Food", "Rent"}),
		Logger:     applog.Discard(),
	}, Config{SeedDemo: true})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	records := tr.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "Demo Food", records[0].Text)
}

func TestNewTrackerRequiresDeps(t *testing.T) {
	_, err := NewTracker(Deps{Vocabulary: taxonomy.New(nil)}, Config{})
	assert.Error(t, err)
	_, err = NewTracker(Deps{Archive: storage.NewArchive(storage.NewMemoryStore(0), "", nil)}, Config{})
	assert.Error(t, err)
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a failed")}
	b := &recordingNotifier{}
	err := MultiNotifier{a, b, NewLogNotifier(applog.Discard())}.Notify(context.Background(), core.Notification{Event: "x"})
	assert.EqualError(t, err, "a failed")
	assert.Len(t, b.notes, 1)
}
