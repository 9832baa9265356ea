package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"threadsntrends_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	totalTolerance = decimal.RequireFromString("0.01")
	hundred        = decimal.NewFromInt(100)
)

// ComputeTotal = somme(prix × quantité) + frais de livraison.
func ComputeTotal(products []models.OrderProduct, shippingCost float64) decimal.Decimal {
	total := decimal.NewFromFloat(shippingCost)
	for _, p := range products {
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(p.Quantity)))
	}
	return total.Round(2)
}

func withinTolerance(expected decimal.Decimal, got float64) bool {
	return expected.Sub(decimal.NewFromFloat(got)).Abs().LessThanOrEqual(totalTolerance)
}

// ToMinorUnits convertit un montant en plus petite unité monétaire (paisa, centime).
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func fromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

// NewOrderID génère un identifiant lisible du type ORD-1A2B3C4D.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

// OrderIDForSession dérive un identifiant stable d'une session Stripe,
// pour les sessions créées sans order_id dans leurs metadata.
func OrderIDForSession(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return "ORD-" + strings.ToUpper(hex.EncodeToString(sum[:4]))
}
