package audit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	coreaudit "farm-agent/core/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	f := newFixture(t, testConfig())
	f.insert(t, 1, base, "alice", "View")

	app := fiber.New()
	feature := NewFeature(f.svc, true)
	assert.Equal(t, "audit", feature.Name())
	require.NoError(t, feature.Load(app))

	resp, err := app.Test(httptest.NewRequest("POST", "/audit/poll", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res coreaudit.PollResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 1, res.Delivered)

	resp, err = app.Test(httptest.NewRequest("GET", "/audit/positions", nil))
	require.NoError(t, err)
	var positions []coreaudit.SourcePosition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "farm", positions[0].Source)
	assert.True(t, positions[0].LastTimestamp.Equal(base))
	assert.Len(t, positions[0].TieBreak, 1)

	resp, err = app.Test(httptest.NewRequest("GET", "/audit/sources", nil))
	require.NoError(t, err)
	var sources []SourceStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "audit_log", sources[0].Table)
	assert.WithinDuration(t, time.Now(), sources[0].LastPoll, time.Minute)
}
