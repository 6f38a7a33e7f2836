package quote

import (
	"fmt"
	"sort"

	"github.com/taipay/cashme/internal/models"
)

// RankMerchants pairs each merchant with its distance from userLocation and
// orders the result closest first. Merchants at equal distance keep their
// input order. Without a location the input order is kept and distances are
// nil. The input slice is not modified.
func RankMerchants(merchants []models.Merchant, userLocation *models.Location) ([]models.RankedMerchant, error) {
	ranked := make([]models.RankedMerchant, len(merchants))
	for i, m := range merchants {
		ranked[i] = models.RankedMerchant{Merchant: m}
	}
	if userLocation == nil {
		return ranked, nil
	}

	for i := range ranked {
		m := &ranked[i]
		d, err := ComputeDistanceKm(userLocation.Latitude, userLocation.Longitude, m.Location.Latitude, m.Location.Longitude)
		if err != nil {
			return nil, fmt.Errorf("merchant %s: %w", m.WalletAddress, err)
		}
		m.DistanceKm = &d
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].DistanceKm < *ranked[j].DistanceKm
	})
	return ranked, nil
}
