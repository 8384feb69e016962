package cardledger

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// cardGradients is the fixed visual palette assigned to new cards.
var cardGradients = []string{
	"from-slate-800 via-slate-700 to-slate-900",
	"from-violet-600 via-purple-600 to-indigo-700",
	"from-rose-500 via-pink-500 to-fuchsia-600",
	"from-emerald-500 via-teal-500 to-cyan-600",
	"from-amber-500 via-orange-500 to-red-500",
	"from-blue-600 via-indigo-600 to-purple-700",
	"from-zinc-700 via-neutral-600 to-stone-700",
}

// generateCardNumber produces four space-separated groups of four digits.
func generateCardNumber(rng *rand.Rand) string {
	groups := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		groups = append(groups, fmt.Sprintf("%04d", 1000+rng.Intn(9000)))
	}
	return strings.Join(groups, " ")
}

// generateCVV produces a three-digit verification code.
func generateCVV(rng *rand.Rand) string {
	return fmt.Sprintf("%03d", 100+rng.Intn(900))
}

func generateBrand(rng *rand.Rand) CardBrand {
	if rng.Float64() > 0.5 {
		return BrandVisa
	}
	return BrandMastercard
}

func generateGradient(rng *rand.Rand) string {
	return cardGradients[rng.Intn(len(cardGradients))]
}

// generateRiskLevel draws from the fixed discrete distribution:
// low 0.7, medium 0.2, high 0.1.
func generateRiskLevel(rng *rand.Rand) RiskLevel {
	draw := rng.Float64()
	if draw < riskLowThreshold {
		return RiskLow
	}
	if draw < riskMediumThreshold {
		return RiskMedium
	}
	return RiskHigh
}

// defaultExpiryDate formats a card expiry a few years past the given moment.
func defaultExpiryDate(nowUnixUTC int64) string {
	return time.Unix(nowUnixUTC, 0).UTC().AddDate(defaultExpiryYears, 0, 0).Format("2006-01")
}
