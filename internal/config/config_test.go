package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 8080
database:
  driver: memory
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`

func TestParse_FillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.GRPCPort)
	assert.Equal(t, "none", cfg.Email.Provider)
	assert.Equal(t, "noreply@gpms.edu.ye", cfg.Email.From)
	assert.Equal(t, 48, cfg.Workflow.InvitationTTLHours)
	assert.Equal(t, 5, cfg.Workflow.MaxStudents)
	assert.Equal(t, 3, cfg.Workflow.MaxSupervisors)
	assert.Equal(t, 2, cfg.Workflow.MaxCoSupervisors)
	assert.Equal(t, []int32{1, 2}, cfg.Workflow.ApprovalSequences["single_department"])
	assert.Equal(t, []int32{1, 2, 3, 4}, cfg.Workflow.ApprovalSequences["government"])
	assert.Equal(t, 120, cfg.Sweep.ReminderDedupeMinutes)
	assert.Equal(t, 90, cfg.Sweep.NotificationRetentionDays)
	assert.Equal(t, 30, cfg.Sweep.InvitationRetentionDays)
	assert.Equal(t, "0 0 * * * *", cfg.Scheduler.RemindExpiringInvitations)
	assert.Equal(t, "0 0 */6 * * *", cfg.Scheduler.ExpireStaleInvitations)
}

func TestParse_KeepsConfiguredSequence(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
workflow:
  approval_sequences:
    single_department: [1]
`))
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, cfg.Workflow.ApprovalSequences["single_department"])
	assert.Equal(t, []int32{1, 2, 3}, cfg.Workflow.ApprovalSequences["multi_department"])
}

func TestParse_RejectsInvalidLevel(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
workflow:
  approval_sequences:
    external: [1, 9]
`))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing port", "database: {driver: memory}\njwt: {secret: 0123456789abcdef0123456789abcdef}"},
		{"short secret", "server: {port: 80}\ndatabase: {driver: memory}\njwt: {secret: short}"},
		{"postgres without host", "server: {port: 80}\ndatabase: {driver: postgres}\njwt: {secret: 0123456789abcdef0123456789abcdef}"},
		{"smtp without host", minimalYAML + "email: {provider: smtp}"},
		{"unknown provider", minimalYAML + "email: {provider: pigeon}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("health"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("invitations.accept"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("something.unknown"))
}
