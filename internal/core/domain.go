package core

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	Income  Type = "income"
	Expense Type = "expense"

	// FilterAll is the category filter value that matches every record.
	FilterAll = "all"
)

const (
	SignPermissive SignPolicy = iota
	SignStrict
)

type (
	// Type tells income and expense records apart.
	Type string

	// SignPolicy controls whether the amount sign is checked against Type.
	SignPolicy int

	Transaction struct {
		ID        int64
		Text      string
		Amount    decimal.Decimal
		Category  string
		Type      Type
		Date      string
		Time      string
		CreatedAt string // optional
		EditedAt  string // set once the record has been edited
	}

	// Input holds raw form values before they are parsed.
	Input struct {
		Text     string
		Amount   string
		Category string
		Type     Type
	}

	// Fields are the validated mutable fields of a Transaction.
	Fields struct {
		Text     string          `validate:"required"`
		Amount   decimal.Decimal `validate:"-"`
		Category string          `validate:"required"`
		Type     Type            `validate:"oneof=income expense"`
	}
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func (t Type) Valid() bool {
	return t == Income || t == Expense
}

func (t Type) String() string {
	return string(t)
}

// Parse normalizes and validates raw input. Checks run in form order:
// text, amount, category, type.
func (in Input) Parse(policy SignPolicy) (Fields, error) {
	f := Fields{
		Text:     strings.TrimSpace(in.Text),
		Category: strings.TrimSpace(in.Category),
		Type:     Type(strings.ToLower(strings.TrimSpace(string(in.Type)))),
	}

	if f.Text == "" {
		return Fields{}, &ValidationError{Field: "text", Err: ErrEmptyText}
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Fields{}, &ValidationError{Field: "amount", Err: err}
	}
	f.Amount = amount

	// No explicit type: infer it from the sign.
	if f.Type == "" {
		if amount.IsNegative() {
			f.Type = Expense
		} else {
			f.Type = Income
		}
	}

	if err := f.Validate(policy); err != nil {
		return Fields{}, err
	}
	return f, nil
}

// Validate checks the non-empty and enum constraints and, under SignStrict,
// rejects negative income.
func (f Fields) Validate(policy SignPolicy) error {
	if err := fieldValidator().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fromFieldError(verrs[0])
		}
		return &ValidationError{Field: "input", Err: err}
	}
	if policy == SignStrict && f.Type == Income && f.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrNegativeIncome}
	}
	return nil
}

func fromFieldError(fe validator.FieldError) *ValidationError {
	switch fe.StructField() {
	case "Text":
		return &ValidationError{Field: "text", Err: ErrEmptyText}
	case "Category":
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	case "Type":
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	default:
		return &ValidationError{Field: strings.ToLower(fe.Field()), Err: errors.New(fe.Tag())}
	}
}

// Apply copies validated fields onto the record.
func (t *Transaction) Apply(f Fields) {
	t.Text = f.Text
	t.Amount = f.Amount
	t.Category = f.Category
	t.Type = f.Type
}

// Fields returns the mutable fields of the record.
func (t Transaction) Fields() Fields {
	return Fields{Text: t.Text, Amount: t.Amount, Category: t.Category, Type: t.Type}
}

// Input renders the record back into raw form values, used to prefill an edit.
func (t Transaction) Input() Input {
	return Input{
		Text:     t.Text,
		Amount:   t.Amount.String(),
		Category: t.Category,
		Type:     t.Type,
	}
}

// Equal compares records by value; amounts compare numerically.
func (t Transaction) Equal(o Transaction) bool {
	return t.ID == o.ID &&
		t.Text == o.Text &&
		t.Amount.Equal(o.Amount) &&
		t.Category == o.Category &&
		t.Type == o.Type &&
		t.Date == o.Date &&
		t.Time == o.Time &&
		t.CreatedAt == o.CreatedAt &&
		t.EditedAt == o.EditedAt
}
