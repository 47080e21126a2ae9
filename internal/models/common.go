// internal/models/common.go
package models

// Enums
type SyncMode string

const (
	// SyncModeMerge upserts the submitted keys and leaves other rows alone.
	SyncModeMerge SyncMode = "merge"
	// SyncModeReplace drops every row of the pharmacy before inserting the batch.
	SyncModeReplace SyncMode = "replace"
)

func (m SyncMode) Valid() bool {
	return m == SyncModeMerge || m == SyncModeReplace
}

type LeadAction string

const (
	LeadActionView     LeadAction = "clique_ver"
	LeadActionWhatsApp LeadAction = "clique_zap"
	LeadActionRoute    LeadAction = "rota"
	LeadActionUnknown  LeadAction = "desconhecida"
)
