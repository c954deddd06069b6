package convo

import (
	"math"

	"packbot/internal/repo"
)

// BulkQuantityCutoff is the quantity at or above which bulk rates apply.
const BulkQuantityCutoff = 1000

// BulkDiscountPercent is the flat discount applied at the bulk cutoff.
const BulkDiscountPercent = 10

// MOQ returns the minimum order quantity for a customer classification.
func MOQ(userType *repo.UserType) int {
	if userType == nil {
		return 50
	}
	switch *userType {
	case repo.UserTypeHomebaker:
		return 50
	case repo.UserTypeStoreOwner:
		return 500
	case repo.UserTypeSweetShop:
		return 100
	default:
		return 50
	}
}

// GSTPercent selects the GST rate for a customer classification and product
// GST category. Food-grade packaging sold to sweet shops attracts the
// concessional rate.
func GSTPercent(userType *repo.UserType, gstCategory string) int {
	if gstCategory == "food_grade" && userType != nil && *userType == repo.UserTypeSweetShop {
		return 5
	}
	if gstCategory == "food_grade" {
		return 12
	}
	return 18
}

// Quote is a deterministic price computation for one line.
type Quote struct {
	UnitPrice  int64
	Quantity   int
	Subtotal   int64
	GSTPercent int
	GSTAmount  int64
	Total      int64
	BulkRate   bool
}

// ComputeQuote applies the bulk cutoff, the quoted-rate override and GST,
// rounding GST to whole currency units. quotedRate <= 0 means no override.
func ComputeQuote(p repo.Product, quantity int, userType *repo.UserType, quotedRate float64) Quote {
	q := Quote{Quantity: quantity, GSTPercent: GSTPercent(userType, p.GSTCategory)}

	unit := float64(p.UnitPrice)
	if quotedRate > 0 {
		q.UnitPrice = int64(math.Round(quotedRate))
		unit = quotedRate
	} else if quantity >= BulkQuantityCutoff {
		unit = unit * (100 - BulkDiscountPercent) / 100
		q.BulkRate = true
		q.UnitPrice = int64(math.Round(unit))
	} else {
		q.UnitPrice = p.UnitPrice
	}

	q.Subtotal = int64(math.Round(unit * float64(quantity)))
	q.GSTAmount = int64(math.Round(float64(q.Subtotal) * float64(q.GSTPercent) / 100))
	q.Total = q.Subtotal + q.GSTAmount
	return q
}
