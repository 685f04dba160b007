package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. They store copies
// so a test mutating a returned struct cannot reach into "the database".
// failWith makes every call return that error, to simulate a store outage.

type fakeAccounts struct {
	byID     map[string]model.Account
	nextID   int
	failWith error
	products *fakeProducts // for cascade on delete
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]model.Account)}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return apperror.Duplicate("correo", a.Email)
		}
	}
	f.nextID++
	a.ID = fmt.Sprintf("acc-%d", f.nextID)
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	return &a, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, a := range f.byID {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccounts) List(_ context.Context) ([]model.Account, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.Account, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) Update(_ context.Context, a *model.Account) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.byID[a.ID]; !ok {
		return apperror.NotFound("account", a.ID)
	}
	for id, existing := range f.byID {
		if id != a.ID && existing.Email == a.Email {
			return apperror.Duplicate("correo", a.Email)
		}
	}
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("account", id)
	}
	delete(f.byID, id)
	if f.products != nil {
		for pid, p := range f.products.byID {
			if p.OwnerID == id {
				delete(f.products.byID, pid)
			}
		}
	}
	return nil
}

type fakeProducts struct {
	byID       map[string]model.Product
	nextID     int
	failWith   error
	lastFilter repository.ProductFilter
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byID: make(map[string]model.Product)}
}

func (f *fakeProducts) Create(_ context.Context, p *model.Product) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	p.ID = fmt.Sprintf("prod-%d", f.nextID)
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*model.Product, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	return &p, nil
}

func (f *fakeProducts) List(_ context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	f.lastFilter = filter
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.Product, 0)
	for _, p := range f.byID {
		if filter.OwnerID == "" || p.OwnerID == filter.OwnerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) Update(_ context.Context, p *model.Product) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.byID[p.ID]; !ok {
		return apperror.NotFound("product", p.ID)
	}
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("product", id)
	}
	delete(f.byID, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(bcrypt.MinCost)
}

func strPtr(s string) *string { return &s }
