package db

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-availability-backend/config"
)

func TestInit_SQLite(t *testing.T) {
	log, _ := test.NewNullLogger()

	gormDB, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"}, log)
	require.NoError(t, err)

	for _, table := range []string{"resources", "push_subscriptions", "subscription_resource_mapping"} {
		assert.True(t, gormDB.Migrator().HasTable(table), table)
	}
	assert.True(t, gormDB.Migrator().HasIndex("subscription_resource_mapping", "idx_subscription_resource_mapping_resource_id"))
}

func TestInit_UnknownDriver(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := Init(&config.DatabaseConfig{Driver: "oracle"}, log)
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}
