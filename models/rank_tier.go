package models

import (
	"errors"
	"fmt"
	"math"
)

type RankTier string

const (
	TierBronze   RankTier = "BRONZE"
	TierSilver   RankTier = "SILVER"
	TierGold     RankTier = "GOLD"
	TierPlatinum RankTier = "PLATINUM"
	TierDiamond  RankTier = "DIAMOND"
)

// TierBand is an inclusive point range. Max == math.MaxInt means open-ended.
type TierBand struct {
	Tier RankTier
	Min  int
	Max  int
}

// RankTiers is an ordered, lowest-first table of bands.
type RankTiers []TierBand

var DefaultRankTiers = RankTiers{
	{Tier: TierBronze, Min: 0, Max: 400},
	{Tier: TierSilver, Min: 401, Max: 800},
	{Tier: TierGold, Min: 801, Max: 1200},
	{Tier: TierPlatinum, Min: 1201, Max: 1600},
	{Tier: TierDiamond, Min: 1601, Max: math.MaxInt},
}

// TierFor returns the band containing points, or the lowest band when none does.
func (t RankTiers) TierFor(points int) RankTier {
	if len(t) == 0 {
		return ""
	}
	for _, band := range t {
		if points >= band.Min && points <= band.Max {
			return band.Tier
		}
	}
	return t[0].Tier
}

// Validate checks that bands start at zero, are contiguous and do not overlap.
func (t RankTiers) Validate() error {
	if len(t) == 0 {
		return errors.New("rank tiers: at least one band is required")
	}
	if t[0].Min != 0 {
		return fmt.Errorf("rank tiers: lowest band %s must start at 0, got %d", t[0].Tier, t[0].Min)
	}
	for i, band := range t {
		if band.Max < band.Min {
			return fmt.Errorf("rank tiers: band %s has max %d below min %d", band.Tier, band.Max, band.Min)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if prev.Max == math.MaxInt || band.Min != prev.Max+1 {
			return fmt.Errorf("rank tiers: band %s must start at %d, got %d", band.Tier, prev.Max+1, band.Min)
		}
	}
	return nil
}
