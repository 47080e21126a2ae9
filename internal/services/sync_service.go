// internal/services/sync_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/database"
	"github.com/farmahub/farmahub-backend/internal/inventory"
	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

// Five bound columns per row stays under SQLite's historical 999-variable cap.
const insertBatchSize = 150

type SyncService struct {
	db      *gorm.DB
	config  config.SyncConfig
	archive *StorageService
	now     func() time.Time
}

type SyncResult struct {
	PharmacyID uint            `json:"pharmacy_id"`
	Mode       models.SyncMode `json:"mode"`
	Received   int             `json:"received"`
	Written    int             `json:"written"`
	Skipped    []SkippedItem   `json:"skipped"`
	SyncedAt   time.Time       `json:"synced_at"`
}

func NewSyncService(db *gorm.DB, cfg config.SyncConfig, archive *StorageService) *SyncService {
	return &SyncService{
		db:      db,
		config:  cfg,
		archive: archive,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for last_updated stamps.
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// DefaultMode is the mode applied by the key-authenticated endpoint.
func (s *SyncService) DefaultMode() models.SyncMode {
	if mode := models.SyncMode(s.config.Mode); mode.Valid() {
		return mode
	}
	return models.SyncModeMerge
}

func (s *SyncService) MaxItems() int {
	return s.config.MaxItems
}

// ResolveAPIKey maps a credential to its pharmacy. Every failure to find one,
// including an empty key, is reported as ErrUnauthorized.
func (s *SyncService) ResolveAPIKey(ctx context.Context, apiKey string) (*models.Pharmacy, error) {
	if apiKey == "" {
		return nil, ErrUnauthorized
	}

	var pharmacy models.Pharmacy
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).Take(&pharmacy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}

	return &pharmacy, nil
}

// SyncPharmacy applies a batch for an already authenticated pharmacy in the
// configured mode.
func (s *SyncService) SyncPharmacy(ctx context.Context, pharmacy *models.Pharmacy, items []inventory.RawItem) (*SyncResult, error) {
	return s.apply(ctx, pharmacy.ID, items, s.DefaultMode())
}

// SyncByPharmacyID serves the id-addressed integration path, which always
// carries full snapshots.
func (s *SyncService) SyncByPharmacyID(ctx context.Context, pharmacyID uint, items []inventory.RawItem) (*SyncResult, error) {
	if pharmacyID == 0 {
		return nil, ErrPharmacyNotFound
	}

	return s.apply(ctx, pharmacyID, items, models.SyncModeReplace)
}

func (s *SyncService) apply(ctx context.Context, pharmacyID uint, raw []inventory.RawItem, mode models.SyncMode) (*SyncResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown sync mode %q", ErrInvalidBatch, mode)
	}
	if s.config.MaxItems > 0 && len(raw) > s.config.MaxItems {
		return nil, ErrTooManyItems
	}

	syncedAt := s.now().UTC()
	items, skipped := normalizeItems(raw)

	rows := make([]models.StockEntry, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.StockEntry{
			PharmacyID:  pharmacyID,
			ProductEAN:  item.EAN,
			Qty:         item.Qty,
			Price:       item.Price,
			LastUpdated: syncedAt,
		})
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		// The row lock serializes concurrent syncs of one pharmacy while
		// leaving other pharmacies free to write.
		var pharmacy models.Pharmacy
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&pharmacy, pharmacyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPharmacyNotFound
			}
			return fmt.Errorf("failed to lock pharmacy: %w", err)
		}

		if err := s.pinMode(tx, &pharmacy, mode); err != nil {
			return err
		}

		switch mode {
		case models.SyncModeReplace:
			if err := tx.Where("pharmacy_id = ?", pharmacyID).Delete(&models.StockEntry{}).Error; err != nil {
				return fmt.Errorf("failed to clear stock: %w", err)
			}
			return insertRows(tx, rows, false)
		default:
			return insertRows(tx, rows, true)
		}
	})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		PharmacyID: pharmacyID,
		Mode:       mode,
		Received:   len(raw),
		Written:    len(rows),
		Skipped:    skipped,
		SyncedAt:   syncedAt,
	}

	logrus.WithFields(logrus.Fields{
		"pharmacy_id": pharmacyID,
		"mode":        mode,
		"received":    result.Received,
		"written":     result.Written,
		"skipped":     len(skipped),
	}).Info("Stock synchronized")

	if mode == models.SyncModeReplace && s.archive != nil {
		if err := s.archive.ArchiveSnapshot(ctx, pharmacyID, syncedAt, items); err != nil {
			logrus.WithError(err).WithField("pharmacy_id", pharmacyID).Warn("Failed to archive stock snapshot")
		}
	}

	return result, nil
}

// pinMode records the first mode a pharmacy syncs with and refuses the other
// one afterwards, so replace and merge feeds never interleave on one pharmacy.
func (s *SyncService) pinMode(tx *gorm.DB, pharmacy *models.Pharmacy, mode models.SyncMode) error {
	if pharmacy.SyncMode != nil {
		if *pharmacy.SyncMode != mode && s.config.EnforceSingleMode {
			return &ModeConflictError{Pinned: *pharmacy.SyncMode, Requested: mode}
		}
		return nil
	}

	if err := tx.Model(pharmacy).Update("sync_mode", mode).Error; err != nil {
		return fmt.Errorf("failed to pin sync mode: %w", err)
	}
	return nil
}

var upsertStock = clause.OnConflict{
	Columns:   []clause.Column{{Name: "pharmacy_id"}, {Name: "product_ean"}},
	DoUpdates: clause.AssignmentColumns([]string{"qty", "price", "last_updated"}),
}

func insertRows(tx *gorm.DB, rows []models.StockEntry, upsert bool) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		q := tx
		if upsert {
			q = tx.Clauses(upsertStock)
		}
		if err := q.Create(&chunk).Error; err != nil {
			return fmt.Errorf("failed to write stock: %w", err)
		}
	}
	return nil
}

// normalizeItems converts and validates every row on its own. Bad rows are
// reported and dropped; for a repeated EAN the last occurrence wins.
func normalizeItems(raw []inventory.RawItem) ([]inventory.Item, []SkippedItem) {
	items := make([]inventory.Item, 0, len(raw))
	skipped := make([]SkippedItem, 0)
	position := make(map[string]int, len(raw))

	for i, r := range raw {
		item, err := r.Convert()
		if err != nil {
			skip := SkippedItem{Index: i, EAN: r.EANString(), Reason: err.Error()}
			var fieldErr *inventory.FieldError
			if errors.As(err, &fieldErr) {
				skip.Field = fieldErr.Field
				skip.Reason = fieldErr.Err.Error()
			}
			skipped = append(skipped, skip)
			continue
		}

		if err := utils.ValidateStruct(item); err != nil {
			skip := SkippedItem{Index: i, EAN: item.EAN, Reason: utils.FirstValidationMessage(err)}
			if errs := utils.GetValidationErrors(err); len(errs) > 0 {
				skip.Field = errs[0].Field
			}
			skipped = append(skipped, skip)
			continue
		}

		if pos, seen := position[item.EAN]; seen {
			items[pos] = item
			continue
		}
		position[item.EAN] = len(items)
		items = append(items, item)
	}

	return items, skipped
}
