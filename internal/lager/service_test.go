package lager

import (
	"context"
	"sync"
	"testing"

	"lager-backend/internal/apperr"
	"lager-backend/internal/models"
	"lager-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usernames(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func countRows(t *testing.T, svc *Service, model any, lagerID, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, svc.db.Model(model).Where("lager_id = ? AND user_id = ?", lagerID, userID).Count(&n).Error)
	return n
}

func TestCreate_AddsOwnerAsMember(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "anna")
	svc := NewService(db)
	ctx := context.Background()

	l, err := svc.Create(ctx, owner.ID, "  Keller ")
	require.NoError(t, err)
	assert.Equal(t, "Keller", l.Name)
	assert.Equal(t, owner.ID, l.OwnerID)

	members, err := svc.Members(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"anna"}, usernames(members))

	// names are not unique
	_, err = svc.Create(ctx, owner.ID, "Keller")
	assert.NoError(t, err)

	_, err = svc.Create(ctx, owner.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListFor(t *testing.T) {
	db := testutil.NewDB(t)
	anna := testutil.CreateUser(t, db, "anna")
	ben := testutil.CreateUser(t, db, "ben")
	svc := NewService(db)
	ctx := context.Background()

	lagers, err := svc.ListFor(ctx, ben.ID)
	require.NoError(t, err)
	assert.NotNil(t, lagers)
	assert.Empty(t, lagers)

	keller, err := svc.Create(ctx, anna.ID, "Keller")
	require.NoError(t, err)
	_, err = svc.Create(ctx, anna.ID, "Dachboden")
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, keller.ID, anna.ID, ben.ID)
	require.NoError(t, err)

	lagers, err = svc.ListFor(ctx, anna.ID)
	require.NoError(t, err)
	require.Len(t, lagers, 2)
	assert.Equal(t, "Dachboden", lagers[0].Name)
	assert.Equal(t, "anna", lagers[0].Owner.Username)

	lagers, err = svc.ListFor(ctx, ben.ID)
	require.NoError(t, err)
	require.Len(t, lagers, 1)
	assert.Equal(t, keller.ID, lagers[0].ID)
}

func TestGrantAccess_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	target := testutil.CreateUser(t, db, "target")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)

	res, err := svc.GrantAccess(ctx, l.ID, owner.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyMember)
	assert.Equal(t, "target", res.User.Username)

	res, err = svc.GrantAccess(ctx, l.ID, owner.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyMember)

	assert.Equal(t, int64(1), countRows(t, svc, &models.LagerMember{}, l.ID, target.ID))
	assert.Equal(t, int64(1), countRows(t, svc, &models.LagerAccess{}, l.ID, target.ID))

	// the owner is always a member
	res, err = svc.GrantAccess(ctx, l.ID, owner.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyMember)
	assert.Equal(t, int64(0), countRows(t, svc, &models.LagerAccess{}, l.ID, owner.ID))
}

func TestGrantAccess_Concurrent(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	target := testutil.CreateUser(t, db, "target")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GrantAccess(ctx, l.ID, owner.ID, target.ID)
			if err != nil {
				t.Error(err)
				return
			}
			if !res.AlreadyMember {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
	assert.Equal(t, int64(1), countRows(t, svc, &models.LagerMember{}, l.ID, target.ID))
	assert.Equal(t, int64(1), countRows(t, svc, &models.LagerAccess{}, l.ID, target.ID))
}

func TestGrantAccess_Errors(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	member := testutil.CreateUser(t, db, "member")
	target := testutil.CreateUser(t, db, "target")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)

	_, err = svc.GrantAccess(ctx, l.ID, member.ID, target.ID)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
	assert.Equal(t, int64(0), countRows(t, svc, &models.LagerMember{}, l.ID, target.ID))

	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	_, err = svc.GrantAccess(ctx, 999, owner.ID, target.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRevokeAccess(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	member := testutil.CreateUser(t, db, "member")
	outsider := testutil.CreateUser(t, db, "outsider")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)

	t.Run("non-owner is rejected and nothing changes", func(t *testing.T) {
		_, err := svc.RevokeAccess(ctx, l.ID, member.ID, member.ID)
		assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
		assert.Equal(t, int64(1), countRows(t, svc, &models.LagerMember{}, l.ID, member.ID))
		assert.Equal(t, int64(1), countRows(t, svc, &models.LagerAccess{}, l.ID, member.ID))
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		_, err := svc.RevokeAccess(ctx, l.ID, owner.ID, owner.ID)
		assert.ErrorIs(t, err, apperr.ErrCannotRevokeOwner)
		assert.Equal(t, int64(1), countRows(t, svc, &models.LagerMember{}, l.ID, owner.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.RevokeAccess(ctx, l.ID, owner.ID, 999)
		assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	})

	t.Run("non-member is a reported no-op", func(t *testing.T) {
		res, err := svc.RevokeAccess(ctx, l.ID, owner.ID, outsider.ID)
		require.NoError(t, err)
		assert.False(t, res.WasMember)
	})

	t.Run("member row and grant row go together", func(t *testing.T) {
		res, err := svc.RevokeAccess(ctx, l.ID, owner.ID, member.ID)
		require.NoError(t, err)
		assert.True(t, res.WasMember)
		assert.Equal(t, int64(0), countRows(t, svc, &models.LagerMember{}, l.ID, member.ID))
		assert.Equal(t, int64(0), countRows(t, svc, &models.LagerAccess{}, l.ID, member.ID))
	})
}

func TestCandidates(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	member := testutil.CreateUser(t, db, "member")
	testutil.CreateUser(t, db, "carla")
	testutil.CreateUser(t, db, "dora")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)

	users, err := svc.Candidates(ctx, l.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carla", "dora"}, usernames(users))
}

func TestAuditTrail(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	member := testutil.CreateUser(t, db, "member")
	svc := NewService(db)
	ctx := context.Background()
	l, err := svc.Create(ctx, owner.ID, "Keller")
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.GrantAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.RevokeAccess(ctx, l.ID, owner.ID, member.ID)
	require.NoError(t, err)

	var actions []models.AuditAction
	require.NoError(t, db.Model(&models.AuditLog{}).Where("lager_id = ?", l.ID).Order("id").Pluck("action", &actions).Error)
	assert.Equal(t, []models.AuditAction{
		models.AuditActionCreate,
		models.AuditActionGrant,
		models.AuditActionRevoke,
	}, actions)
}
