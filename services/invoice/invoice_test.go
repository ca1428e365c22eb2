package invoice

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicely/database"
	invoiceRepo "invoicely/database/repository/invoice"
	"invoicely/models"
	"invoicely/services/audit"
	"invoicely/utils"
)

type memInvoices struct {
	byID    map[string]*models.Invoice
	collide int
	creates int
}

func newMemInvoices() *memInvoices {
	return &memInvoices{byID: map[string]*models.Invoice{}}
}

func clone(inv *models.Invoice) *models.Invoice {
	cp := *inv
	cp.Items = append([]models.LineItem(nil), inv.Items...)
	cp.Payments = append([]models.Payment{}, inv.Payments...)
	return &cp
}

func (m *memInvoices) Create(_ context.Context, inv *models.Invoice) error {
	m.creates++
	if m.collide > 0 {
		m.collide--
		return invoiceRepo.ErrNumberTaken
	}
	m.byID[inv.ID] = clone(inv)
	return nil
}

func (m *memInvoices) Get(_ context.Context, userID, id string) (*models.Invoice, error) {
	inv, ok := m.byID[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	return clone(inv), nil
}

func (m *memInvoices) GetForUpdate(ctx context.Context, userID, id string) (*models.Invoice, error) {
	return m.Get(ctx, userID, id)
}

func (m *memInvoices) List(_ context.Context, userID string, filter models.InvoiceFilter) ([]models.Invoice, error) {
	out := []models.Invoice{}
	for _, inv := range m.byID {
		if inv.UserID == userID && (filter.Status == "" || inv.Status == filter.Status) {
			out = append(out, *clone(inv))
		}
	}
	return out, nil
}

func (m *memInvoices) Numbers(_ context.Context, userID, prefix string) ([]string, error) {
	var out []string
	for _, inv := range m.byID {
		if inv.UserID == userID && strings.HasPrefix(inv.InvoiceNumber, prefix+"-") {
			out = append(out, inv.InvoiceNumber)
		}
	}
	return out, nil
}

func (m *memInvoices) Update(_ context.Context, inv *models.Invoice) (bool, error) {
	if _, ok := m.byID[inv.ID]; !ok {
		return false, nil
	}
	m.byID[inv.ID] = clone(inv)
	return true, nil
}

func (m *memInvoices) SaveSettlement(_ context.Context, inv *models.Invoice) error {
	stored := m.byID[inv.ID]
	stored.PaidAmount = inv.PaidAmount
	stored.Status = inv.Status
	stored.Payments = append([]models.Payment{}, inv.Payments...)
	return nil
}

func (m *memInvoices) UpdateStatus(_ context.Context, userID, id string, status models.InvoiceStatus) (bool, error) {
	inv, ok := m.byID[id]
	if !ok || inv.UserID != userID {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (m *memInvoices) Delete(_ context.Context, userID, id string) (bool, error) {
	inv, ok := m.byID[id]
	if !ok || inv.UserID != userID {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

type memContacts struct {
	owned map[string]string // contact id -> owner
}

func (m memContacts) Create(context.Context, *models.Contact) error { return nil }

func (m memContacts) Get(_ context.Context, userID, id string) (*models.Contact, error) {
	if m.owned[id] != userID {
		return nil, nil
	}
	return &models.Contact{ID: id, UserID: userID, Name: "Acme"}, nil
}

func (m memContacts) List(context.Context, string, string) ([]models.Contact, error) {
	return nil, nil
}

func (m memContacts) Update(context.Context, *models.Contact) (bool, error) { return false, nil }
func (m memContacts) Delete(context.Context, string, string) (bool, error)  { return false, nil }

type memSettings struct {
	byUser map[string]*models.Settings
}

func (m memSettings) Get(_ context.Context, userID string) (*models.Settings, error) {
	return m.byUser[userID], nil
}

func (m memSettings) Upsert(context.Context, *models.Settings) error        { return nil }
func (m memSettings) SetLogo(context.Context, string, string, string) error { return nil }

type fixture struct {
	svc      *DefaultInvoiceService
	invoices *memInvoices
	settings memSettings
	mock     sqlmock.Sqlmock
}

var fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	invoices := newMemInvoices()
	settings := memSettings{byUser: map[string]*models.Settings{}}
	svc := &DefaultInvoiceService{
		DB:              db,
		Repos:           func(database.DBTX) invoiceRepo.InvoiceRepository { return invoices },
		Contacts:        memContacts{owned: map[string]string{"c1": "u1", "c2": "u2"}},
		Settings:        settings,
		Audit:           audit.Noop{},
		Logger:          zap.NewNop(),
		DefaultCurrency: "USD",
		Now:             func() time.Time { return fixedNow },
	}
	return &fixture{svc: svc, invoices: invoices, settings: settings, mock: mock}
}

func basicInput() models.InvoiceInput {
	return models.InvoiceInput{
		Items:   []models.LineItem{{Description: "Consulting", Quantity: 2, UnitPrice: 50}},
		TaxRate: 10,
	}
}

func (f *fixture) create(t *testing.T) *models.Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), "u1", basicInput())
	require.NoError(t, err)
	return inv
}

func (f *fixture) pay(userID, invoiceID string, amount float64, ref string) (*models.PaymentReceipt, error) {
	return f.svc.RecordPayment(context.Background(), userID, models.PaymentInput{
		InvoiceID: invoiceID, Amount: amount, Reference: ref,
	})
}

func TestCreate_ComputesTotalsAndDefaults(t *testing.T) {
	f := newFixture(t)

	inv := f.create(t)
	assert.Equal(t, 100.0, inv.Subtotal)
	assert.Equal(t, 10.0, inv.TaxAmount)
	assert.Equal(t, 110.0, inv.Total)
	assert.Equal(t, 100.0, inv.Items[0].Amount)
	assert.Equal(t, models.StatusPending, inv.Status)
	assert.Equal(t, models.DiscountPercentage, inv.DiscountType)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "2026-03-15", inv.IssueDate.Format(dateLayout))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2026-04-14", inv.DueDate.Format(dateLayout))
	assert.Empty(t, inv.Payments)
	// No prior numbers: clock-derived suffix.
	assert.Regexp(t, `^INV-2026-\d{6}$`, inv.InvoiceNumber)
}

func TestCreate_NumbersFollowHighestSuffix(t *testing.T) {
	f := newFixture(t)
	f.invoices.byID["old"] = &models.Invoice{ID: "old", UserID: "u1", InvoiceNumber: "INV-2025-004"}
	f.invoices.byID["other"] = &models.Invoice{ID: "other", UserID: "u2", InvoiceNumber: "INV-2026-090"}

	inv := f.create(t)
	assert.Equal(t, "INV-2026-005", inv.InvoiceNumber)

	next := f.create(t)
	assert.Equal(t, "INV-2026-006", next.InvoiceNumber)
}

func TestCreate_UsesOwnerSettings(t *testing.T) {
	f := newFixture(t)
	f.settings.byUser["u1"] = &models.Settings{
		UserID: "u1", DefaultCurrency: "EUR", PaymentTermsDays: 14, InvoicePrefix: "ACME",
	}

	inv := f.create(t)
	assert.Equal(t, "EUR", inv.Currency)
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "ACME-2026-"))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2026-03-29", inv.DueDate.Format(dateLayout))
}

func TestCreate_RetriesNumberCollision(t *testing.T) {
	f := newFixture(t)
	f.invoices.collide = 2

	inv := f.create(t)
	assert.Equal(t, 3, f.invoices.creates)
	assert.NotEmpty(t, inv.InvoiceNumber)
}

func TestCreate_GivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.invoices.collide = maxNumberRetries + 1

	_, err := f.svc.Create(context.Background(), "u1", basicInput())
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, utils.StatusFor(err))
	assert.Empty(t, f.invoices.byID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	other := "c2"

	cases := map[string]func(in *models.InvoiceInput){
		"no items":          func(in *models.InvoiceInput) { in.Items = nil },
		"zero quantity":     func(in *models.InvoiceInput) { in.Items[0].Quantity = 0 },
		"blank description": func(in *models.InvoiceInput) { in.Items[0].Description = "  " },
		"tax over 100":      func(in *models.InvoiceInput) { in.TaxRate = 101 },
		"bad discount type": func(in *models.InvoiceInput) { in.DiscountType = "bogus" },
		"percent over 100":  func(in *models.InvoiceInput) { in.DiscountValue = 120 },
		"fixed over total": func(in *models.InvoiceInput) {
			in.DiscountType = models.DiscountFixed
			in.DiscountValue = 150
		},
		"bad currency": func(in *models.InvoiceInput) { in.Currency = "dollars" },
		"bad date":     func(in *models.InvoiceInput) { in.IssueDate = "15/03/2026" },
		"due before issue": func(in *models.InvoiceInput) {
			in.IssueDate = "2026-03-15"
			in.DueDate = "2026-03-01"
		},
		"foreign contact": func(in *models.InvoiceInput) { in.ContactID = &other },
		"huge quantity":   func(in *models.InvoiceInput) { in.Items[0].Quantity = 1e15 },
		"huge unit price": func(in *models.InvoiceInput) { in.Items[0].UnitPrice = 1e11 },
		"line over max": func(in *models.InvoiceInput) {
			in.Items[0].Quantity = 2
			in.Items[0].UnitPrice = 6e9
		},
		"huge fixed discount": func(in *models.InvoiceInput) {
			in.DiscountType = models.DiscountFixed
			in.DiscountValue = 1e13
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := basicInput()
			mutate(&in)
			_, err := f.svc.Create(context.Background(), "u1", in)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
		})
	}
	assert.Empty(t, f.invoices.byID)
}

func TestCreate_TotalOverMaximum(t *testing.T) {
	f := newFixture(t)

	in := basicInput()
	in.TaxRate = 0
	in.Items = []models.LineItem{
		{Description: "Plant", Quantity: 1, UnitPrice: 6e9},
		{Description: "Plant", Quantity: 1, UnitPrice: 6e9},
	}
	_, err := f.svc.Create(context.Background(), "u1", in)
	require.Error(t, err)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "items", appErr.Field)
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))

	// Within bounds before tax, over it after.
	in = basicInput()
	in.Items = []models.LineItem{{Description: "Plant", Quantity: 1, UnitPrice: 9.5e9}}
	in.TaxRate = 20
	_, err = f.svc.Create(context.Background(), "u1", in)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "items", appErr.Field)
	assert.Empty(t, f.invoices.byID)
}

func TestCreate_FixedDiscount(t *testing.T) {
	f := newFixture(t)
	in := basicInput()
	in.DiscountType = models.DiscountFixed
	in.DiscountValue = 20
	owned := "c1"
	in.ContactID = &owned

	inv, err := f.svc.Create(context.Background(), "u1", in)
	require.NoError(t, err)
	assert.Equal(t, 20.0, inv.DiscountAmount)
	assert.Equal(t, 8.0, inv.TaxAmount)
	assert.Equal(t, 88.0, inv.Total)
	require.NotNil(t, inv.ContactID)
	assert.Equal(t, "c1", *inv.ContactID)
}

func TestGet_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	_, err := f.svc.Get(context.Background(), "u2", inv.ID)
	assert.Equal(t, http.StatusNotFound, utils.StatusFor(err))

	got, err := f.svc.Get(context.Background(), "u1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), "u1", models.InvoiceFilter{Status: "overdue"})
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
}

func TestRecordPayment_PartialThenPaid(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	receipt, err := f.pay("u1", inv.ID, 40, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, receipt.Invoice.Status)
	assert.Equal(t, 40.0, receipt.TotalPaid)
	assert.Equal(t, 70.0, receipt.Remaining)
	assert.Equal(t, "cash", receipt.Payment.Method)
	assert.Equal(t, "2026-03-15", receipt.Payment.Date)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	receipt, err = f.pay("u1", inv.ID, 70, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, receipt.Invoice.Status)
	assert.Equal(t, 0.0, receipt.Remaining)

	stored := f.invoices.byID[inv.ID]
	assert.Equal(t, 110.0, stored.PaidAmount)
	require.Len(t, stored.Payments, 2)
	assert.NotEqual(t, stored.Payments[0].ID, stored.Payments[1].ID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordPayment_OverpaymentRollsBack(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.pay("u1", inv.ID, 110.01, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
	assert.Equal(t, 0.0, f.invoices.byID[inv.ID].PaidAmount)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordPayment_NonPositive(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.pay("u1", inv.ID, 0, "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
}

func TestRecordPayment_DuplicateReference(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.pay("u1", inv.ID, 10, "pi_123")
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.pay("u1", inv.ID, 10, "pi_123")
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.Len(t, f.invoices.byID[inv.ID].Payments, 1)
}

func TestRecordPayment_OtherOwner(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.pay("u2", inv.ID, 10, "")
	assert.Equal(t, http.StatusNotFound, utils.StatusFor(err))
}

func TestRecordPayment_MissingInvoiceID(t *testing.T) {
	f := newFixture(t)
	_, err := f.pay("u1", " ", 10, "")
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
}

func TestUpdate_CannotDropBelowPaid(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.pay("u1", inv.ID, 80, "")
	require.NoError(t, err)

	in := basicInput()
	in.Items[0].Quantity = 1
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Update(context.Background(), "u1", inv.ID, in)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
	assert.Equal(t, 110.0, f.invoices.byID[inv.ID].Total)
}

func TestUpdate_ReconcilesStatus(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.pay("u1", inv.ID, 110, "")
	require.NoError(t, err)

	in := basicInput()
	in.Items = append(in.Items, models.LineItem{Description: "Travel", Quantity: 1, UnitPrice: 20})
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	updated, err := f.svc.Update(context.Background(), "u1", inv.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 132.0, updated.Total)
	assert.Equal(t, models.StatusPartial, updated.Status)
	assert.Equal(t, 110.0, updated.PaidAmount)
	assert.Equal(t, inv.InvoiceNumber, updated.InvoiceNumber)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdate_KeepsDatesWhenOmitted(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	updated, err := f.svc.Update(context.Background(), "u1", inv.ID, basicInput())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", updated.IssueDate.Format(dateLayout))
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, "2026-04-14", updated.DueDate.Format(dateLayout))

	in := basicInput()
	in.DueDate = "2026-05-01"
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	updated, err = f.svc.Update(context.Background(), "u1", inv.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", updated.DueDate.Format(dateLayout))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdate_IssueDateAfterStoredDueDate(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	in := basicInput()
	in.IssueDate = "2026-05-01"
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Update(context.Background(), "u1", inv.ID, in)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "due_date", appErr.Field)
	assert.Equal(t, "2026-04-14", f.invoices.byID[inv.ID].DueDate.Format(dateLayout))

	in.DueDate = "2026-05-31"
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	updated, err := f.svc.Update(context.Background(), "u1", inv.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", updated.IssueDate.Format(dateLayout))
	assert.Equal(t, "2026-05-31", updated.DueDate.Format(dateLayout))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSetStatus_CancelledIsSticky(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	updated, err := f.svc.SetStatus(context.Background(), "u1", inv.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	receipt, err := f.pay("u1", inv.ID, 110, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, receipt.Invoice.Status)
	assert.Equal(t, 110.0, receipt.TotalPaid)
}

func TestSetStatus_Invalid(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	_, err := f.svc.SetStatus(context.Background(), "u1", inv.ID, "archived")
	assert.Equal(t, http.StatusBadRequest, utils.StatusFor(err))
	assert.Equal(t, models.StatusPending, f.invoices.byID[inv.ID].Status)
}

func TestDeleteAndPayments(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	payments, err := f.svc.Payments(context.Background(), "u1", inv.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	assert.Equal(t, http.StatusNotFound, utils.StatusFor(f.svc.Delete(context.Background(), "u2", inv.ID)))
	require.NoError(t, f.svc.Delete(context.Background(), "u1", inv.ID))

	_, err = f.svc.Payments(context.Background(), "u1", inv.ID)
	assert.Equal(t, http.StatusNotFound, utils.StatusFor(err))
}
