package inventory

import (
	"context"
	"testing"

	"lager-backend/internal/apperr"
	"lager-backend/internal/models"
	"lager-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []models.Artikel) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.Name)
	}
	return out
}

func TestCatalogCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, UserID: f.owner.ID, Name: "  Bolt M4  "})
	require.NoError(t, err)
	assert.Equal(t, "Bolt M4", a.Name)
	assert.Equal(t, 0, a.Quantity)
	assert.Empty(t, f.entries(t, a))

	_, err = f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, Name: "Bolt M4", Quantity: 3})
	assert.ErrorIs(t, err, apperr.ErrDuplicateArticle)

	// exact match only
	_, err = f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, Name: "bolt m4"})
	assert.NoError(t, err)

	// same name in another warehouse is fine
	other := testutil.CreateLager(t, f.db, f.owner, "Zweitlager")
	_, err = f.catalog.Create(ctx, CreateArticleInput{LagerID: other.ID, Name: "Bolt M4"})
	assert.NoError(t, err)
}

func TestCatalogCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, Name: "Kabel", Quantity: -1})
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	items, err := f.catalog.ListAll(ctx, f.lager.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalogCreate_OpeningStockGoesThroughLedger(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, "Kabel", 7)
	assert.Equal(t, 7, a.Quantity)

	sum, err := f.ledger.Recompute(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, sum)
}

func TestCatalogUpdate_Partial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.catalog.Create(ctx, CreateArticleInput{LagerID: f.lager.ID, Name: "Bolt", Quantity: 4, Image: "bolt.png"})
	require.NoError(t, err)

	newName := "Bolt M8"
	got, err := f.catalog.Update(ctx, a.ID, UpdateArticleInput{Name: &newName}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bolt M8", got.Name)
	assert.Equal(t, "bolt.png", got.Image)
	assert.Equal(t, 4, got.Quantity)

	img := "bolt-new.png"
	got, err = f.catalog.Update(ctx, a.ID, UpdateArticleInput{Image: &img}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bolt M8", got.Name)
	assert.Equal(t, "bolt-new.png", got.Image)

	stored := f.reload(t, a)
	assert.Equal(t, "Bolt M8", stored.Name)
	assert.Equal(t, "bolt-new.png", stored.Image)
	assert.Equal(t, 4, stored.Quantity)
}

func TestCatalogUpdate_RenameConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.article(t, "Screw", 1)
	a := f.article(t, "Nail", 1)

	taken := "Screw"
	_, err := f.catalog.Update(ctx, a.ID, UpdateArticleInput{Name: &taken}, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrDuplicateArticle)
	assert.Equal(t, "Nail", f.reload(t, a).Name)

	same := "Nail"
	_, err = f.catalog.Update(ctx, a.ID, UpdateArticleInput{Name: &same}, f.owner.ID)
	assert.NoError(t, err)

	_, err = f.catalog.Update(ctx, 999, UpdateArticleInput{Name: &same}, f.owner.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCatalogListInStock_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.article(t, "Bolt M4", 3)
	f.article(t, "Bolt M6", 0)
	f.article(t, "Screw", 5)

	items, err := f.catalog.ListInStock(ctx, f.lager.ID, "bolt")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt M4"}, names(items))

	items, err = f.catalog.ListInStock(ctx, f.lager.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt M4", "Screw"}, names(items))

	items, err = f.catalog.ListInStock(ctx, f.lager.ID, "washer")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCatalogListInStock_WildcardsAreLiteral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.article(t, "100% Cotton", 1)
	f.article(t, "1000 Cotton", 1)
	f.article(t, "A_B", 1)
	f.article(t, "AxB", 1)

	items, err := f.catalog.ListInStock(ctx, f.lager.ID, "100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Cotton"}, names(items))

	items, err = f.catalog.ListInStock(ctx, f.lager.ID, "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"A_B"}, names(items))
}

func TestCatalogListAll_IncludesEmptyArticles(t *testing.T) {
	f := newFixture(t)
	f.article(t, "Leer", 0)
	f.article(t, "Voll", 2)

	items, err := f.catalog.ListAll(context.Background(), f.lager.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leer", "Voll"}, names(items))
}

func TestCatalogSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.catalog.Summary(ctx, f.lager.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)

	f.article(t, "A", 3)
	f.article(t, "B", 0)
	f.article(t, "C", 4)

	s, err = f.catalog.Summary(ctx, f.lager.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{Articles: 3, InStock: 2, TotalUnits: 7}, s)
}

func TestCatalog_WritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	a := f.article(t, "A", 1)
	name := "B"
	_, err := f.catalog.Update(context.Background(), a.ID, UpdateArticleInput{Name: &name}, f.owner.ID)
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, f.db.Where("entity_type = ? AND entity_id = ?", "artikel", a.ID).Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
	assert.Equal(t, models.AuditActionUpdate, logs[1].Action)
	assert.Equal(t, "owner", logs[1].UserName)
	assert.Contains(t, logs[1].BeforeData, `"Name":"A"`)
	assert.Contains(t, logs[1].AfterData, `"Name":"B"`)
}
