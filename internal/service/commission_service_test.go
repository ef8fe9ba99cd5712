package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-market-ledger/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestCurrentRateNewestActiveWins(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeCommissionRepo{settings: []model.CommissionSetting{
		{BaseModel: model.BaseModel{CreatedAt: base}, Rate: decimal.NewFromInt(10), Active: false},
		{BaseModel: model.BaseModel{CreatedAt: base.Add(time.Hour)}, Rate: decimal.NewFromInt(5), Active: true},
		{BaseModel: model.BaseModel{CreatedAt: base.Add(-time.Hour)}, Rate: decimal.NewFromInt(7), Active: true},
	}}
	svc := NewCommissionService(repo, model.DefaultCommissionRate, zap.NewNop())

	rate, err := svc.CurrentRate(context.Background())
	if err != nil {
		t.Fatalf("CurrentRate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(5)) {
		t.Errorf("rate = %s, want 5", rate)
	}
	if repo.created != 0 {
		t.Errorf("created %d settings, want none", repo.created)
	}
}

func TestCurrentRateCreatesDefaultOnce(t *testing.T) {
	repo := &fakeCommissionRepo{}
	svc := NewCommissionService(repo, decimal.RequireFromString("5.00"), zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := svc.CurrentRate(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if !rate.Equal(decimal.NewFromInt(5)) {
				errs <- errors.New("unexpected rate " + rate.String())
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if repo.created != 1 {
		t.Fatalf("default created %d times, want 1", repo.created)
	}
	if repo.settings[0].CreatedBy != "system" || !repo.settings[0].Active {
		t.Errorf("default setting = %+v", repo.settings[0])
	}
}

func TestCurrentRateStorageFailure(t *testing.T) {
	repo := &fakeCommissionRepo{findErr: errBoom}
	svc := NewCommissionService(repo, model.DefaultCommissionRate, zap.NewNop())

	_, err := svc.CurrentRate(context.Background())
	if KindOf(err) != KindStorage {
		t.Fatalf("kind = %v, want storage (err %v)", KindOf(err), err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestSetRate(t *testing.T) {
	tests := []struct {
		rate    string
		wantErr bool
	}{
		{"0", false},
		{"7.5", false},
		{"100", false},
		{"12.25", false},
		{"-1", true},
		{"100.01", true},
		{"3.333", true},
	}

	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			repo := &fakeCommissionRepo{}
			svc := NewCommissionService(repo, model.DefaultCommissionRate, zap.NewNop())

			setting, err := svc.SetRate(context.Background(), decimal.RequireFromString(tt.rate), "admin-1")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRate) {
					t.Fatalf("err = %v, want ErrInvalidRate", err)
				}
				if repo.created != 0 {
					t.Errorf("invalid rate was stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetRate: %v", err)
			}
			if setting.CreatedBy != "admin-1" || !setting.Active {
				t.Errorf("setting = %+v", setting)
			}

			current, err := svc.CurrentRate(context.Background())
			if err != nil {
				t.Fatalf("CurrentRate: %v", err)
			}
			if !current.Equal(decimal.RequireFromString(tt.rate)) {
				t.Errorf("current = %s, want %s", current, tt.rate)
			}
		})
	}
}

func TestSetRateSupersedes(t *testing.T) {
	repo := &fakeCommissionRepo{}
	svc := NewCommissionService(repo, model.DefaultCommissionRate, zap.NewNop())
	ctx := context.Background()

	for _, r := range []string{"5", "8", "6.5"} {
		if _, err := svc.SetRate(ctx, decimal.RequireFromString(r), "admin"); err != nil {
			t.Fatalf("SetRate(%s): %v", r, err)
		}
	}

	rate, err := svc.CurrentRate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !rate.Equal(decimal.RequireFromString("6.5")) {
		t.Errorf("rate = %s, want 6.5", rate)
	}

	all, err := svc.ListSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("history has %d rows, want 3", len(all))
	}
	if !all[0].Rate.Equal(decimal.RequireFromString("6.5")) {
		t.Errorf("newest first: got %s", all[0].Rate)
	}
}

func TestSplitCommission(t *testing.T) {
	tests := []struct {
		price          int64
		rate           string
		wantCommission int64
	}{
		{10000, "5", 500},
		{8000, "5", 400},
		{999, "5", 49},
		{1, "5", 0},
		{12345, "2.5", 308},
		{12345, "0", 0},
		{12345, "100", 12345},
		{7, "33.33", 2},
	}

	for _, tt := range tests {
		commission, seller := splitCommission(tt.price, decimal.RequireFromString(tt.rate))
		if commission != tt.wantCommission {
			t.Errorf("splitCommission(%d, %s) commission = %d, want %d", tt.price, tt.rate, commission, tt.wantCommission)
		}
		if commission+seller != tt.price {
			t.Errorf("splitCommission(%d, %s): %d + %d != price", tt.price, tt.rate, commission, seller)
		}
	}
}

func TestSplitCommissionNeverExceedsPrice(t *testing.T) {
	rates := []string{"0", "0.01", "1", "4.99", "5", "12.5", "50", "99.99", "100"}
	for _, r := range rates {
		rate := decimal.RequireFromString(r)
		for price := int64(1); price <= 5000; price += 37 {
			commission, seller := splitCommission(price, rate)
			if commission < 0 || seller < 0 || commission+seller != price {
				t.Fatalf("price %d rate %s: commission %d seller %d", price, r, commission, seller)
			}
			exact := decimal.NewFromInt(price).Mul(rate).Div(hundred)
			if decimal.NewFromInt(commission).GreaterThan(exact) {
				t.Fatalf("price %d rate %s: commission %d rounds up from %s", price, r, commission, exact)
			}
		}
	}
}
