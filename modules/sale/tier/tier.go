// Package tier maps a game score to a purchase tier. The table below is the
// single source of tier thresholds and batch limits.
package tier

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
)

type Tier struct {
	Name       string `json:"name"`
	MinScore   int    `json:"minScore"`
	MaxBatches int    `json:"maxBatches"`
}

var (
	// Ungated is the result for scores below the lowest tier. It allows no purchase.
	Ungated = Tier{Name: "ungated"}

	Bronze = Tier{Name: "bronze", MinScore: 200, MaxBatches: 5}
	Silver = Tier{Name: "silver", MinScore: 500, MaxBatches: 10}
	Gold   = Tier{Name: "gold", MinScore: 1000, MaxBatches: 20}
)

// descending by MinScore
var table = []Tier{Gold, Silver, Bronze}

// All returns the purchasable tiers in ascending order.
func All() []Tier {
	return []Tier{Bronze, Silver, Gold}
}

// Resolve returns the highest tier whose threshold the score reaches.
// A negative score is a caller bug.
func Resolve(score int) (Tier, error) {
	if score < 0 {
		return Tier{}, errors.Wrapf(errs.InvalidArgument, "negative game score %d", score)
	}
	for _, t := range table {
		if score >= t.MinScore {
			return t, nil
		}
	}
	return Ungated, nil
}

// MustResolve is like Resolve but panics on a negative score.
func MustResolve(score int) Tier {
	t, err := Resolve(score)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse returns the tier with the given name, case-insensitive.
func Parse(name string) (Tier, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == Ungated.Name {
		return Ungated, nil
	}
	for _, t := range table {
		if t.Name == name {
			return t, nil
		}
	}
	return Tier{}, errors.Wrapf(errs.InvalidArgument, "unknown tier %q", name)
}

// IsGated reports whether the tier allows purchases at all.
func (t Tier) IsGated() bool {
	return t.MaxBatches > 0
}

// Allows reports whether batchCount is within 1..MaxBatches.
func (t Tier) Allows(batchCount int) bool {
	return batchCount >= 1 && batchCount <= t.MaxBatches
}

func (t Tier) String() string {
	return t.Name
}
