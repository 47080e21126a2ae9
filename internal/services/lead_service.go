// internal/services/lead_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

const recentLeadsLimit = 10

type LeadService struct {
	db       *gorm.DB
	location *time.Location
	now      func() time.Time
}

type LogActionRequest struct {
	PharmacyID uint   `json:"pharmacy_id"`
	EAN        string `json:"ean"`
	Action     string `json:"action"`
}

type PharmacyLeadCount struct {
	PharmacyID   uint   `json:"pharmacy_id"`
	PharmacyName string `json:"pharmacy_name"`
	Total        int64  `json:"total"`
}

type LeadView struct {
	ID           uint   `json:"id"`
	PharmacyID   uint   `json:"pharmacy_id"`
	PharmacyName string `json:"pharmacy_name"`
	ProductEAN   string `json:"product_ean"`
	ActionType   string `json:"action_type"`
	CreatedAt    string `json:"created_at"`
	Timezone     string `json:"timezone"`
}

type Dashboard struct {
	TotalLeads  int64               `json:"total_leads"`
	ByPharmacy  []PharmacyLeadCount `json:"by_pharmacy"`
	RecentLeads []LeadView          `json:"recent_leads"`
	Timezone    string              `json:"timezone"`
}

type leadRow struct {
	ID               uint
	PharmacyID       uint
	PharmacyName     *string
	PharmacyTimezone *string
	ProductEAN   string
	ActionType   string
	CreatedAt    time.Time
}

func NewLeadService(db *gorm.DB, location *time.Location) *LeadService {
	if location == nil {
		location = time.UTC
	}
	return &LeadService{
		db:       db,
		location: location,
		now:      time.Now,
	}
}

func (s *LeadService) SetClock(now func() time.Time) {
	s.now = now
}

// LogAction appends a lead. Pharmacy and EAN are recorded as given, clipped to
// the column widths; leads are telemetry and are not checked against stock.
func (s *LeadService) LogAction(ctx context.Context, req LogActionRequest) (*models.Lead, error) {
	action := clip(strings.TrimSpace(req.Action), maxActionLength)
	if action == "" {
		action = string(models.LeadActionUnknown)
	}

	lead := &models.Lead{
		PharmacyID: req.PharmacyID,
		ProductEAN: clip(strings.TrimSpace(req.EAN), maxLeadEANLength),
		ActionType: models.LeadAction(action),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to record lead: %w", err)
	}

	return lead, nil
}

func (s *LeadService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	dashboard := &Dashboard{
		ByPharmacy:  []PharmacyLeadCount{},
		RecentLeads: []LeadView{},
		Timezone:    s.location.String(),
	}

	if err := db.Model(&models.Lead{}).Count(&dashboard.TotalLeads).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	var counts []struct {
		PharmacyID   uint
		PharmacyName *string
		Total        int64
	}
	err := db.Table("leads AS l").
		Select("l.pharmacy_id, ph.name AS pharmacy_name, COUNT(*) AS total").
		Joins("LEFT JOIN pharmacies ph ON ph.id = l.pharmacy_id").
		Group("l.pharmacy_id, ph.name").
		Order("total DESC, l.pharmacy_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leads: %w", err)
	}
	for _, c := range counts {
		dashboard.ByPharmacy = append(dashboard.ByPharmacy, PharmacyLeadCount{
			PharmacyID:   c.PharmacyID,
			PharmacyName: deref(c.PharmacyName),
			Total:        c.Total,
		})
	}

	var rows []leadRow
	err = leadsQuery(db).
		Order("l.created_at DESC, l.id DESC").
		Limit(recentLeadsLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent leads: %w", err)
	}
	dashboard.RecentLeads = s.views(rows)

	return dashboard, nil
}

// ListLeads pages through the whole lead log, newest first by default.
func (s *LeadService) ListLeads(ctx context.Context, params utils.PaginationParams) ([]LeadView, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Lead{})
	if params.Action != "" {
		query = query.Where("action_type = ?", params.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []models.Lead
	query = utils.ApplySort(query, params, []string{"created_at", "pharmacy_id", "action_type"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leads: %w", err)
	}

	pharmacies, err := s.pharmaciesOf(ctx, leads)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]leadRow, 0, len(leads))
	for _, l := range leads {
		row := leadRow{
			ID:         l.ID,
			PharmacyID: l.PharmacyID,
			ProductEAN: l.ProductEAN,
			ActionType: string(l.ActionType),
			CreatedAt:  l.CreatedAt,
		}
		if ph, ok := pharmacies[l.PharmacyID]; ok {
			row.PharmacyName = &ph.Name
			row.PharmacyTimezone = ph.Timezone
		}
		rows = append(rows, row)
	}

	return s.views(rows), total, nil
}

func (s *LeadService) pharmaciesOf(ctx context.Context, leads []models.Lead) (map[uint]models.Pharmacy, error) {
	ids := make([]uint, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.PharmacyID)
	}

	byID := make(map[uint]models.Pharmacy)
	if len(ids) == 0 {
		return byID, nil
	}

	var pharmacies []models.Pharmacy
	if err := s.db.WithContext(ctx).Select("id", "name", "timezone").Where("id IN ?", ids).Find(&pharmacies).Error; err != nil {
		return nil, fmt.Errorf("failed to load lead pharmacies: %w", err)
	}
	for _, p := range pharmacies {
		byID[p.ID] = p
	}
	return byID, nil
}

func leadsQuery(db *gorm.DB) *gorm.DB {
	return db.Table("leads AS l").
		Select("l.id, l.pharmacy_id, ph.name AS pharmacy_name, ph.timezone AS pharmacy_timezone, l.product_ean, l.action_type, l.created_at").
		Joins("LEFT JOIN pharmacies ph ON ph.id = l.pharmacy_id")
}

// views renders each timestamp in its pharmacy's local time, or the
// dashboard's when the pharmacy has no valid zone.
func (s *LeadService) views(rows []leadRow) []LeadView {
	zones := make(map[string]*time.Location)
	views := make([]LeadView, 0, len(rows))
	for _, r := range rows {
		loc := s.pharmacyLocation(zones, r.PharmacyTimezone)
		views = append(views, LeadView{
			ID:           r.ID,
			PharmacyID:   r.PharmacyID,
			PharmacyName: deref(r.PharmacyName),
			ProductEAN:   r.ProductEAN,
			ActionType:   r.ActionType,
			CreatedAt:    r.CreatedAt.In(loc).Format("02/01/2006 15:04:05"),
			Timezone:     loc.String(),
		})
	}
	return views
}

func (s *LeadService) pharmacyLocation(zones map[string]*time.Location, name *string) *time.Location {
	if name == nil || *name == "" {
		return s.location
	}
	if loc, ok := zones[*name]; ok {
		return loc
	}

	loc, err := time.LoadLocation(*name)
	if err != nil {
		logrus.WithError(err).WithField("timezone", *name).Warn("Unknown pharmacy timezone")
		loc = s.location
	}
	zones[*name] = loc
	return loc
}

const (
	maxLeadEANLength = 32
	maxActionLength  = 50
)

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
