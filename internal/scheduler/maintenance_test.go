package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/tasks"
)

func TestStartStop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	client, err := tasks.NewClient(dbPath, tasks.DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	s := NewMaintenanceScheduler(client, config.Maintenance{
		OverdueSweepEnabled:  true,
		OverdueSweepSchedule: "0 * * * *",
		AuditCleanupSchedule: "30 3 * * *",
	}, config.Audit{RetentionDays: 365})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Len(t, s.NextRuns(), 2)

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStartWithInvalidSchedule(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	client, err := tasks.NewClient(dbPath, tasks.DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	s := NewMaintenanceScheduler(client, config.Maintenance{
		OverdueSweepEnabled:  true,
		OverdueSweepSchedule: "not a schedule",
	}, config.Audit{})

	assert.Error(t, s.Start(context.Background()))
}

func TestStartWithoutClient(t *testing.T) {
	s := NewMaintenanceScheduler(nil, config.Maintenance{}, config.Audit{})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
