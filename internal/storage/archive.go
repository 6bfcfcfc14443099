package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
)

// DefaultKey is the slot name the transaction list lives under.
const DefaultKey = "transactions"

// record is the persisted layout of a transaction. Field names are part of
// the on-disk format and must not change without a migration.
type record struct {
	ID        int64       `json:"id"`
	Text      string      `json:"text"`
	Amount    json.Number `json:"amount"`
	Category  string      `json:"category"`
	Type      core.Type   `json:"type"`
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	CreatedAt string      `json:"createdAt,omitempty"`
	EditedAt  string      `json:"editedAt,omitempty"`
}

func toRecord(t core.Transaction) record {
	return record{
		ID:        t.ID,
		Text:      t.Text,
		Amount:    json.Number(t.Amount.String()),
		Category:  t.Category,
		Type:      t.Type,
		Date:      t.Date,
		Time:      t.Time,
		CreatedAt: t.CreatedAt,
		EditedAt:  t.EditedAt,
	}
}

func (r record) toTransaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record %d: amount %q: %w", r.ID, r.Amount, err)
	}
	return core.Transaction{
		ID:        r.ID,
		Text:      r.Text,
		Amount:    amount,
		Category:  r.Category,
		Type:      r.Type,
		Date:      r.Date,
		Time:      r.Time,
		CreatedAt: r.CreatedAt,
		EditedAt:  r.EditedAt,
	}, nil
}

// Archive mirrors the full transaction list into one key of a KeyValue slot.
type Archive struct {
	kv     KeyValue
	key    string
	logger *applog.Logger
}

func NewArchive(kv KeyValue, key string, logger *applog.Logger) *Archive {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentStorage)
	}
	return &Archive{kv: kv, key: key, logger: logger}
}

// Key returns the slot name.
func (a *Archive) Key() string { return a.key }

// Save serializes the ordered list and overwrites the slot.
func (a *Archive) Save(ctx context.Context, records []core.Transaction) error {
	out := make([]record, len(records))
	for i, t := range records {
		out[i] = toRecord(t)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return &core.PersistenceError{Op: applog.OpSave, Key: a.key, Err: err}
	}
	if err := a.kv.Put(ctx, a.key, body); err != nil {
		return &core.PersistenceError{Op: applog.OpSave, Key: a.key, Err: err}
	}
	a.logger.DebugContext(ctx, "Transactions saved",
		applog.FieldStorageKey, a.key,
		applog.FieldCount, len(records),
		applog.FieldBytes, len(body))
	return nil
}

// Load reads the slot. A missing key or a payload that does not parse yields
// an empty list; only a failing backend read is reported as an error.
func (a *Archive) Load(ctx context.Context) ([]core.Transaction, error) {
	body, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return []core.Transaction{}, &core.PersistenceError{Op: applog.OpLoad, Key: a.key, Err: err}
	}

	records, err := decode(body)
	if err != nil {
		a.logger.WarnContext(ctx, "Stored transactions are corrupt, starting empty",
			applog.FieldStorageKey, a.key,
			applog.FieldError, err)
		return []core.Transaction{}, nil
	}
	return records, nil
}

func decode(body []byte) ([]core.Transaction, error) {
	var in []record
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(in))
	for _, r := range in {
		t, err := r.toTransaction()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
