package seed

import (
	"context"
	"testing"

	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	admin := Admin{Name: "Administrador", Username: "Admin", Email: "admin@distri.co", Password: "cambiar-esta-clave"}

	require.NoError(t, Run(context.Background(), db, admin))
	require.NoError(t, Run(context.Background(), db, admin))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	var cats int64
	require.NoError(t, db.Model(&models.Category{}).Count(&cats).Error)
	assert.EqualValues(t, len(BaseCategories), cats)
}

func TestRun_RequiresPassword(t *testing.T) {
	db := testutil.NewDB(t)
	err := Run(context.Background(), db, Admin{Username: "admin", Email: "admin@distri.co", Password: "corta"})
	assert.Error(t, err)

	var cats int64
	require.NoError(t, db.Model(&models.Category{}).Count(&cats).Error)
	assert.Zero(t, cats, "nothing is written when the admin cannot be created")
}
