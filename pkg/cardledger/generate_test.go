package cardledger

import (
	"math/rand"
	"regexp"
	"testing"
)

var cardNumberPattern = regexp.MustCompile(`^\d{4} \d{4} \d{4} \d{4}$`)
var cvvPattern = regexp.MustCompile(`^\d{3}$`)

func TestGenerateCardNumberFormat(test *testing.T) {
	test.Parallel()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		number := generateCardNumber(rng)
		if !cardNumberPattern.MatchString(number) {
			test.Fatalf("unexpected card number format %q", number)
		}
	}
}

func TestGenerateCVVFormat(test *testing.T) {
	test.Parallel()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		cvv := generateCVV(rng)
		if !cvvPattern.MatchString(cvv) {
			test.Fatalf("unexpected cvv %q", cvv)
		}
		if cvv[0] == '0' {
			test.Fatalf("cvv %q below 100", cvv)
		}
	}
}

func TestGenerateGradientFromPalette(test *testing.T) {
	test.Parallel()
	rng := rand.New(rand.NewSource(7))
	known := make(map[string]bool, len(cardGradients))
	for _, gradient := range cardGradients {
		known[gradient] = true
	}
	for i := 0; i < 50; i++ {
		if gradient := generateGradient(rng); !known[gradient] {
			test.Fatalf("gradient %q not in palette", gradient)
		}
	}
}

func TestGenerateRiskLevelDistribution(test *testing.T) {
	test.Parallel()
	rng := rand.New(rand.NewSource(7))
	counts := map[RiskLevel]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		counts[generateRiskLevel(rng)]++
	}
	if counts[RiskLow] < 6500 || counts[RiskLow] > 7500 {
		test.Fatalf("low share outside expectation: %d", counts[RiskLow])
	}
	if counts[RiskMedium] < 1500 || counts[RiskMedium] > 2500 {
		test.Fatalf("medium share outside expectation: %d", counts[RiskMedium])
	}
	if counts[RiskHigh] < 500 || counts[RiskHigh] > 1500 {
		test.Fatalf("high share outside expectation: %d", counts[RiskHigh])
	}
}

func TestDefaultExpiryDateFormat(test *testing.T) {
	test.Parallel()
	expiry := defaultExpiryDate(fixedNow)
	if !regexp.MustCompile(`^\d{4}-\d{2}$`).MatchString(expiry) {
		test.Fatalf("unexpected expiry format %q", expiry)
	}
}
