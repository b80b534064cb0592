package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 2, ups)
	assert.Equal(t, ups, downs)

	_, err = newSource()
	require.NoError(t, err)
}

func TestApplyFallsBackToAutoMigrate(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, Apply(conn))
	require.NoError(t, Apply(conn))

	assert.True(t, conn.Migrator().HasTable("partners"))
	assert.True(t, conn.Migrator().HasTable("settings"))
	assert.True(t, conn.Migrator().HasIndex("partners", "ux_partners_name"))
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
	assert.Error(t, Apply(nil))
}
