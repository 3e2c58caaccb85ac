package api

import (
	"fmt"
	"strings"
)

// Tiers in ascending order.
var Tiers = []string{"Iron", "Bronze", "Silver", "Gold", "Platinum", "Diamond", "Master", "Grandmaster", "Challenger"}

// Divisions from lowest to highest.
var Divisions = []string{"IV", "III", "II", "I"}

// apexTiers have no divisions on the ladder.
var apexTiers = map[string]bool{"Master": true, "Grandmaster": true, "Challenger": true}

// NormalizeRank validates a "<Tier> <Division>" rank and returns it in
// canonical form, e.g. "gold ii" becomes "Gold II". Apex tiers may omit
// the division.
func NormalizeRank(rank string) (string, error) {
	fields := strings.Fields(rank)
	if len(fields) == 0 || len(fields) > 2 {
		return "", fmt.Errorf("invalid rank %q: want \"<Tier> <Division>\", e.g. \"Gold II\"", rank)
	}

	tier := ""
	for _, t := range Tiers {
		if strings.EqualFold(t, fields[0]) {
			tier = t
			break
		}
	}
	if tier == "" {
		return "", fmt.Errorf("invalid rank %q: unknown tier %q (want one of %s)", rank, fields[0], strings.Join(Tiers, ", "))
	}

	if len(fields) == 1 {
		if !apexTiers[tier] {
			return "", fmt.Errorf("invalid rank %q: %s needs a division (I-IV)", rank, tier)
		}
		return tier, nil
	}

	div := strings.ToUpper(fields[1])
	for _, d := range Divisions {
		if d == div {
			return tier + " " + div, nil
		}
	}
	return "", fmt.Errorf("invalid rank %q: unknown division %q (want I, II, III or IV)", rank, fields[1])
}
