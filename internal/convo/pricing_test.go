package convo

import (
	"testing"

	"packbot/internal/repo"
)

func userTypePtr(t repo.UserType) *repo.UserType { return &t }

func TestMOQByUserType(t *testing.T) {
	if got := MOQ(nil); got != 50 {
		t.Fatalf("unclassified MOQ = %d, want 50", got)
	}
	if got := MOQ(userTypePtr(repo.UserTypeStoreOwner)); got != 500 {
		t.Fatalf("store owner MOQ = %d, want 500", got)
	}
	if got := MOQ(userTypePtr(repo.UserTypeSweetShop)); got != 100 {
		t.Fatalf("sweet shop MOQ = %d, want 100", got)
	}
}

func TestGSTSelection(t *testing.T) {
	if got := GSTPercent(userTypePtr(repo.UserTypeHomebaker), "standard"); got != 18 {
		t.Fatalf("standard GST = %d, want 18", got)
	}
	if got := GSTPercent(userTypePtr(repo.UserTypeHomebaker), "food_grade"); got != 12 {
		t.Fatalf("food grade GST = %d, want 12", got)
	}
	if got := GSTPercent(userTypePtr(repo.UserTypeSweetShop), "food_grade"); got != 5 {
		t.Fatalf("sweet shop food grade GST = %d, want 5", got)
	}
}

func TestComputeQuoteStandardRate(t *testing.T) {
	p := repo.Product{UnitPrice: 18, GSTCategory: "standard"}
	q := ComputeQuote(p, 200, userTypePtr(repo.UserTypeHomebaker), 0)

	if q.BulkRate {
		t.Fatal("200 pcs must not get the bulk rate")
	}
	if q.Subtotal != 3600 {
		t.Fatalf("subtotal = %d, want 3600", q.Subtotal)
	}
	if q.GSTAmount != 648 {
		t.Fatalf("gst = %d, want 648", q.GSTAmount)
	}
	if q.Total != 4248 {
		t.Fatalf("total = %d, want 4248", q.Total)
	}
	if q.Total != q.Subtotal+q.GSTAmount {
		t.Fatal("total must equal subtotal plus gst")
	}
}

func TestComputeQuoteBulkCutoff(t *testing.T) {
	p := repo.Product{UnitPrice: 10, GSTCategory: "standard"}
	q := ComputeQuote(p, BulkQuantityCutoff, nil, 0)

	if !q.BulkRate {
		t.Fatal("expected bulk rate at the cutoff")
	}
	if q.Subtotal != 9000 {
		t.Fatalf("subtotal = %d, want 9000", q.Subtotal)
	}
}

func TestComputeQuoteQuotedRateOverride(t *testing.T) {
	p := repo.Product{UnitPrice: 18, GSTCategory: "standard"}
	q := ComputeQuote(p, 2000, userTypePtr(repo.UserTypeStoreOwner), 16.5)

	if q.BulkRate {
		t.Fatal("quoted rate overrides the bulk rule")
	}
	if q.Subtotal != 33000 {
		t.Fatalf("subtotal = %d, want 33000", q.Subtotal)
	}
	if q.GSTAmount != 5940 {
		t.Fatalf("gst = %d, want 5940", q.GSTAmount)
	}
}

func TestComputeQuoteRoundsToWholeRupees(t *testing.T) {
	p := repo.Product{UnitPrice: 7, GSTCategory: "food_grade"}
	q := ComputeQuote(p, 33, userTypePtr(repo.UserTypeSweetShop), 0)

	// 231 * 5% = 11.55 -> 12
	if q.GSTAmount != 12 {
		t.Fatalf("gst = %d, want 12", q.GSTAmount)
	}
}
