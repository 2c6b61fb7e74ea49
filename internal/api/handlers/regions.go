package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"market-curves/internal/api/models"
	"market-curves/internal/data"
)

// ListRegions returns a handler for GET /api/v1/regions backed by the regions file at path.
// A missing file falls back to the built-in regions.
func ListRegions(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := data.LoadRegionsOrDefault(path)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "REGIONS_LOAD_ERROR", fmt.Sprintf("Failed to load regions: %v", err), nil)
			return
		}

		regions := make([]models.RegionInfo, len(list.Regions))
		for i, r := range list.Regions {
			regions[i] = models.RegionInfo{
				ID:        r.ID,
				Name:      r.Name,
				Market:    r.Market,
				Timezone:  r.Timezone,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"regions":    regions,
			"updated_at": list.UpdatedAt,
			"count":      len(regions),
		})
	}
}
