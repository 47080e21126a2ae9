// internal/services/lead_service_test.go
package services

import (
	"context"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/testutil"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

func TestLogAction_DefaultsUnknownAction(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, time.UTC)

	lead, err := svc.LogAction(context.Background(), LogActionRequest{PharmacyID: 3, EAN: " 789 "})
	require.NoError(t, err)
	assert.NotZero(t, lead.ID)
	assert.Equal(t, models.LeadActionUnknown, lead.ActionType)
	assert.Equal(t, "789", lead.ProductEAN)

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLogAction_ClipsToColumnWidths(t *testing.T) {
	svc := NewLeadService(testutil.NewDB(t), time.UTC)

	lead, err := svc.LogAction(context.Background(), LogActionRequest{
		EAN:    strings.Repeat("7", 40),
		Action: strings.Repeat("á", 60),
	})
	require.NoError(t, err)
	assert.Zero(t, lead.PharmacyID)
	assert.Len(t, lead.ProductEAN, 32)
	assert.Equal(t, 50, utf8.RuneCountInString(string(lead.ActionType)))
}

func TestDashboard_CountsAndRecentLeads(t *testing.T) {
	db := testutil.NewDB(t)
	brt := time.FixedZone("BRT", -3*60*60)
	svc := NewLeadService(db, brt)
	ctx := context.Background()

	a := testutil.CreatePharmacy(t, db, "Bairro", "ka", nil, nil)
	b := testutil.CreatePharmacy(t, db, "Pelourinho", "kb", nil, nil)

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.SetClock(func() time.Time { return at })
		pharmacy := a.ID
		if i%3 == 0 {
			pharmacy = b.ID
		}
		_, err := svc.LogAction(ctx, LogActionRequest{PharmacyID: pharmacy, EAN: "111", Action: string(models.LeadActionWhatsApp)})
		require.NoError(t, err)
	}

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(12), dashboard.TotalLeads)
	require.Len(t, dashboard.ByPharmacy, 2)
	assert.Equal(t, PharmacyLeadCount{PharmacyID: a.ID, PharmacyName: "Bairro", Total: 8}, dashboard.ByPharmacy[0])
	assert.Equal(t, PharmacyLeadCount{PharmacyID: b.ID, PharmacyName: "Pelourinho", Total: 4}, dashboard.ByPharmacy[1])

	require.Len(t, dashboard.RecentLeads, 10)
	newest := dashboard.RecentLeads[0]
	assert.Equal(t, "10/03/2024 09:11:00", newest.CreatedAt)
	assert.Equal(t, "Bairro", newest.PharmacyName)
	assert.Equal(t, "clique_zap", newest.ActionType)
	assert.Equal(t, "BRT", dashboard.Timezone)
}

func TestDashboard_UsesPharmacyLocalTime(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, time.FixedZone("BRT", -3*60*60))
	ctx := context.Background()

	manaus := testutil.CreatePharmacy(t, db, "Manaus", "ka", nil, nil)
	require.NoError(t, db.Model(manaus).Update("timezone", "America/Manaus").Error)
	salvador := testutil.CreatePharmacy(t, db, "Salvador", "kb", nil, nil)
	broken := testutil.CreatePharmacy(t, db, "Broken", "kc", nil, nil)
	require.NoError(t, db.Model(broken).Update("timezone", "Mars/Olympus").Error)

	at := time.Date(2024, 3, 10, 12, 11, 0, 0, time.UTC)
	for i, ph := range []uint{manaus.ID, salvador.ID, broken.ID} {
		lead := at.Add(time.Duration(i) * time.Second)
		svc.SetClock(func() time.Time { return lead })
		_, err := svc.LogAction(ctx, LogActionRequest{PharmacyID: ph, EAN: "111"})
		require.NoError(t, err)
	}

	dashboard, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, dashboard.RecentLeads, 3)

	byName := map[string]LeadView{}
	for _, v := range dashboard.RecentLeads {
		byName[v.PharmacyName] = v
	}
	assert.Equal(t, "10/03/2024 08:11:00", byName["Manaus"].CreatedAt)
	assert.Equal(t, "America/Manaus", byName["Manaus"].Timezone)
	assert.Equal(t, "10/03/2024 09:11:01", byName["Salvador"].CreatedAt)
	assert.Equal(t, "BRT", byName["Salvador"].Timezone)
	assert.Equal(t, "10/03/2024 09:11:02", byName["Broken"].CreatedAt)

	leads, _, err := svc.ListLeads(ctx, utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, "10/03/2024 08:11:00", leads[0].CreatedAt)
}

func TestDashboard_Empty(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, nil)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalLeads)
	assert.NotNil(t, dashboard.ByPharmacy)
	assert.NotNil(t, dashboard.RecentLeads)
	assert.Equal(t, "UTC", dashboard.Timezone)
}

func TestDashboard_LeadForUnknownPharmacy(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, time.UTC)

	_, err := svc.LogAction(context.Background(), LogActionRequest{PharmacyID: 99, EAN: "111", Action: "rota"})
	require.NoError(t, err)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, dashboard.ByPharmacy, 1)
	assert.Empty(t, dashboard.ByPharmacy[0].PharmacyName)
	assert.Equal(t, uint(99), dashboard.RecentLeads[0].PharmacyID)
}

func TestListLeads_PaginatesAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeadService(db, time.UTC)
	ctx := context.Background()
	ph := testutil.CreatePharmacy(t, db, "Bairro", "ka", nil, nil)

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	actions := []models.LeadAction{models.LeadActionView, models.LeadActionRoute, models.LeadActionView, models.LeadActionView, models.LeadActionRoute}
	for i, action := range actions {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.SetClock(func() time.Time { return at })
		_, err := svc.LogAction(ctx, LogActionRequest{PharmacyID: ph.ID, EAN: "111", Action: string(action)})
		require.NoError(t, err)
	}

	views, total, err := svc.ListLeads(ctx, utils.PaginationParams{Page: 1, Limit: 2, Sort: "created_at", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, views, 2)
	assert.Equal(t, "10/03/2024 16:00:00", views[0].CreatedAt)
	assert.Equal(t, "Bairro", views[0].PharmacyName)

	views, total, err = svc.ListLeads(ctx, utils.PaginationParams{Page: 2, Limit: 2, Sort: "created_at", Order: "asc", Action: "clique_ver"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 1)
	assert.Equal(t, "10/03/2024 15:00:00", views[0].CreatedAt)
}
