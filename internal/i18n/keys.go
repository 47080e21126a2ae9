// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyStatusOnline  = "status.online"
	KeyInternalError = "error.internal"
	KeyRateLimited   = "error.rate_limited"

	// Authentication
	KeyAuthInvalidAPIKey = "auth.invalid_api_key"
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAuthForbidden     = "auth.forbidden"

	// Pharmacies
	KeyPharmacyNotFound = "pharmacy.not_found"

	// Catalog
	KeyProductNotFound = "product.not_found"

	// Sync
	KeySyncSuccess      = "sync.success"
	KeySyncModeConflict = "sync.mode_conflict"
	KeySyncInvalidBatch = "sync.invalid_batch"
	KeySyncTooManyItems = "sync.too_many_items"

	// Search
	KeySearchEANRequired       = "search.ean_required"
	KeySearchInvalidCoordinate = "search.invalid_coordinates"
	KeySearchNoResults         = "search.no_results"
	KeySearchResultsFound      = "search.results_found"
	KeySearchDistanceUnknown   = "search.distance_unknown"
	KeySearchETAUnknown        = "search.eta_unknown"
	KeySearchETANotice         = "search.eta_notice"

	// Leads
	KeyLeadRecorded = "lead.recorded"

	// Validation
	KeyValidationInvalid = "validation.invalid"
)
