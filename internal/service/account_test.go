package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
)

type accountFixture struct {
	svc      *AccountService
	accounts *fakeAccounts
	products *fakeProducts
	ana, bob *model.Account
}

func newAccountFixture(t *testing.T, enforceOwnership bool) *accountFixture {
	t.Helper()
	accounts := newFakeAccounts()
	products := newFakeProducts()
	accounts.products = products

	f := &accountFixture{
		svc:      NewAccountService(accounts, products, testPasswords(), enforceOwnership, discardLogger()),
		accounts: accounts,
		products: products,
	}
	f.ana = f.create(t, "Ana", "ana@x.com")
	f.bob = f.create(t, "Bob", "bob@x.com")
	return f
}

func (f *accountFixture) create(t *testing.T, name, email string) *model.Account {
	t.Helper()
	hash, err := testPasswords().Hash("pw123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	a := &model.Account{Name: name, Email: email, PasswordHash: hash, Phone: "555"}
	if err := f.accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

// ===== READ TESTS =====

func TestAccountList(t *testing.T) {
	f := newAccountFixture(t, false)

	accounts, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("List() returned %d, want 2", len(accounts))
	}
}

func TestAccountGetByID(t *testing.T) {
	f := newAccountFixture(t, false)

	got, err := f.svc.GetByID(context.Background(), f.ana.ID)
	if err != nil || got.Email != "ana@x.com" {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}

	if _, err := f.svc.GetByID(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.GetByID(context.Background(), " "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetByID(blank) error = %v, want ErrValidation", err)
	}
}

func TestAccountProfile_OnlyOwnProducts(t *testing.T) {
	f := newAccountFixture(t, false)
	ctx := context.Background()
	_ = f.products.Create(ctx, &model.Product{Title: "Ana's bike", OwnerID: f.ana.ID})
	_ = f.products.Create(ctx, &model.Product{Title: "Bob's lamp", OwnerID: f.bob.ID})

	account, products, err := f.svc.Profile(ctx, f.ana)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if account.ID != f.ana.ID {
		t.Errorf("Profile() account = %s, want %s", account.ID, f.ana.ID)
	}
	if len(products) != 1 || products[0].Title != "Ana's bike" {
		t.Errorf("Profile() products = %+v, want only Ana's", products)
	}
	if f.products.lastFilter.OwnerID != f.ana.ID {
		t.Errorf("Profile() filtered by %q, want %q", f.products.lastFilter.OwnerID, f.ana.ID)
	}
}

// ===== UPDATE TESTS =====

func TestAccountUpdate_PasswordRehashedOnlyWhenPresent(t *testing.T) {
	f := newAccountFixture(t, false)
	ctx := context.Background()
	originalHash := f.accounts.byID[f.ana.ID].PasswordHash

	updated, err := f.svc.UpdateMe(ctx, f.ana, model.AccountPatch{Address: strPtr("Calle 1")})
	if err != nil {
		t.Fatalf("UpdateMe() error = %v", err)
	}
	if updated.Address != "Calle 1" {
		t.Errorf("Address = %q, want Calle 1", updated.Address)
	}
	if f.accounts.byID[f.ana.ID].PasswordHash != originalHash {
		t.Error("hash changed although no password was supplied")
	}

	if _, err := f.svc.UpdateMe(ctx, f.ana, model.AccountPatch{Password: strPtr("new-secret")}); err != nil {
		t.Fatalf("UpdateMe(password) error = %v", err)
	}
	newHash := f.accounts.byID[f.ana.ID].PasswordHash
	if newHash == originalHash || newHash == "new-secret" {
		t.Errorf("password not re-hashed: %q", newHash)
	}
	if err := testPasswords().Verify(newHash, "new-secret"); err != nil {
		t.Errorf("new hash does not verify: %v", err)
	}
}

func TestAccountUpdate_Validation(t *testing.T) {
	f := newAccountFixture(t, false)

	tests := []struct {
		name    string
		patch   model.AccountPatch
		wantErr error
	}{
		{"blank nombre", model.AccountPatch{Name: strPtr("  ")}, apperror.ErrValidation},
		{"blank correo", model.AccountPatch{Email: strPtr("")}, apperror.ErrValidation},
		{"empty password", model.AccountPatch{Password: strPtr("")}, apperror.ErrValidation},
		{"taken correo", model.AccountPatch{Email: strPtr("bob@x.com")}, apperror.ErrDuplicateIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(context.Background(), f.ana, f.ana.ID, tt.patch)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccountUpdate_Ownership(t *testing.T) {
	t.Run("not enforced lets anyone update", func(t *testing.T) {
		f := newAccountFixture(t, false)
		got, err := f.svc.Update(context.Background(), f.bob, f.ana.ID, model.AccountPatch{Name: strPtr("Hacked")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Name != "Hacked" {
			t.Errorf("Name = %q, want Hacked", got.Name)
		}
	})

	t.Run("enforced refuses other accounts", func(t *testing.T) {
		f := newAccountFixture(t, true)
		_, err := f.svc.Update(context.Background(), f.bob, f.ana.ID, model.AccountPatch{Name: strPtr("Hacked")})
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Fatalf("Update() error = %v, want ErrForbidden", err)
		}
		if f.accounts.byID[f.ana.ID].Name != "Ana" {
			t.Error("refused update still changed the account")
		}
	})

	t.Run("enforced allows self", func(t *testing.T) {
		f := newAccountFixture(t, true)
		if _, err := f.svc.Update(context.Background(), f.ana, f.ana.ID, model.AccountPatch{Name: strPtr("Ana M")}); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	})
}

func TestAccountUpdate_NotFound(t *testing.T) {
	f := newAccountFixture(t, false)

	_, err := f.svc.Update(context.Background(), f.ana, "ghost", model.AccountPatch{Name: strPtr("X")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// ===== DELETE TESTS =====

func TestAccountDelete_ReturnsDeletedAndCascades(t *testing.T) {
	f := newAccountFixture(t, false)
	ctx := context.Background()
	_ = f.products.Create(ctx, &model.Product{Title: "Ana's bike", OwnerID: f.ana.ID})

	deleted, err := f.svc.Delete(ctx, f.bob, f.ana.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.ID != f.ana.ID || deleted.Email != "ana@x.com" {
		t.Errorf("Delete() returned %+v, want Ana", deleted)
	}
	if _, ok := f.accounts.byID[f.ana.ID]; ok {
		t.Error("account still stored after Delete()")
	}
	if len(f.products.byID) != 0 {
		t.Error("owned products survived account deletion")
	}

	if _, err := f.svc.Delete(ctx, f.bob, f.ana.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestAccountDelete_OwnershipEnforced(t *testing.T) {
	f := newAccountFixture(t, true)

	if _, err := f.svc.Delete(context.Background(), f.bob, f.ana.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() error = %v, want ErrForbidden", err)
	}
	if _, ok := f.accounts.byID[f.ana.ID]; !ok {
		t.Error("refused delete still removed the account")
	}
}

// Store failures travel up to the handler, which logs them once.
func TestAccountService_StoreFailureIsReturnedNotLogged(t *testing.T) {
	var logs bytes.Buffer
	accounts := newFakeAccounts()
	accounts.failWith = errStoreDown
	svc := NewAccountService(accounts, newFakeProducts(), testPasswords(), false, slog.New(slog.NewTextHandler(&logs, nil)))
	caller := &model.Account{ID: "a1"}

	calls := map[string]func() error{
		"List":    func() error { _, err := svc.List(context.Background()); return err },
		"GetByID": func() error { _, err := svc.GetByID(context.Background(), "a1"); return err },
		"Delete":  func() error { _, err := svc.Delete(context.Background(), caller, "a1"); return err },
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, errStoreDown) {
			t.Errorf("%s() error = %v, want wrapped store error", name, err)
		}
	}
	if logs.Len() != 0 {
		t.Errorf("service logged store failures:\n%s", logs.String())
	}
}
