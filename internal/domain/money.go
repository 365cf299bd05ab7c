package domain

import "fmt"

// MilliCents represents monetary values in thousandths of a cent. LLM token
// pricing is small enough that whole cents lose precision on a single call,
// so costs are tracked in milli-cents and converted at the edges.
type MilliCents int64

const (
	// MilliCentsPerCent is the number of milli-cents in a cent.
	MilliCentsPerCent = 1000

	// MilliCentsPerDollar is the number of milli-cents in a dollar.
	MilliCentsPerDollar = 100 * MilliCentsPerCent
)

// String formats the amount as dollars (e.g., 150000 → "$1.50").
func (m MilliCents) String() string {
	return fmt.Sprintf("$%.4f", float64(m)/MilliCentsPerDollar)
}

// Dollars returns the amount as a float dollar value for persistence.
func (m MilliCents) Dollars() float64 { return float64(m) / MilliCentsPerDollar }

// IsZero returns true if the amount is zero.
func (m MilliCents) IsZero() bool { return m == 0 }

// Add returns the sum of two amounts.
func (m MilliCents) Add(x MilliCents) MilliCents { return m + x }
