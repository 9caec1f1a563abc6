package account_test

import (
	"testing"

	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/testutil"
)

func TestResolver_Resolve(t *testing.T) {
	f := setup(t)
	a, _ := testutil.CreateAccount(t, f.repo, "a@x.com", "pw", account.RoleAdmin)
	b, _ := testutil.CreateAccount(t, f.repo, "b@x.com", "secret", account.RoleStudent)

	resolver := account.NewResolver(f.repo)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantID  int
		wantErr error
	}{
		{name: "valid", email: "a@x.com", pwd: "pw", wantID: a.ID},
		{name: "email is normalized", email: "  B@X.com ", pwd: "secret", wantID: b.ID},
		{name: "wrong password", email: "b@x.com", pwd: "wrong", wantErr: account.ErrNoMatch},
		{name: "unknown email", email: "c@x.com", pwd: "pw", wantErr: account.ErrNoMatch},
		{name: "empty email", pwd: "pw", wantErr: account.ErrNoMatch},
		{name: "empty password", email: "a@x.com", wantErr: account.ErrNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := resolver.Resolve(f.ctx, tt.email, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if acc.ID != tt.wantID {
				t.Errorf("Resolve() ID = %v, want %v", acc.ID, tt.wantID)
			}
		})
	}
}

func TestResolver_Resolve_emptyStore(t *testing.T) {
	f := setup(t)
	resolver := account.NewResolver(f.repo)

	acc, err := resolver.Resolve(f.ctx, "a@x.com", "pw")
	if err != account.ErrNoMatch {
		t.Fatalf("Resolve() error = %v, wantErr %v", err, account.ErrNoMatch)
	}
	if acc.ID != 0 {
		t.Errorf("Resolve() ID = %v, want 0", acc.ID)
	}
}
