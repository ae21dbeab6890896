package services

import "listings-aggregator/models"

// Normalize projects t onto models.CanonicalColumns: canonical columns missing
// from t are filled with nil, extra columns are dropped, and the row count is
// unchanged. t itself is not modified.
func Normalize(t *models.Table) *models.Table {
	return t.Project(models.CanonicalColumns)
}
