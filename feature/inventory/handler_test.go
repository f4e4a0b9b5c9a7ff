package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"farm-agent/core/poller"
	"farm-agent/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t)
	f.collector.snap = farmSnapshot()

	app := fiber.New()
	feature := NewFeature(f.svc, true)
	assert.Equal(t, "inventory", feature.Name())
	assert.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app, f
}

func TestHandleCycleAndSummary(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/inventory/cycle", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res reconcile.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 5, res.Added)

	resp, err = app.Test(httptest.NewRequest("GET", "/inventory/summary", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "F1", summary.Status.Farm)
	assert.Equal(t, 2, summary.Counts["Site"])
	assert.Equal(t, 1, summary.Counts["Farm"])
}

func TestHandleRecords(t *testing.T) {
	app, f := newTestApp(t)
	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		url    string
		status int
		ids    []string
	}{
		{"by category", "/inventory/records?category=Site", fiber.StatusOK, []string{"F1#WA1#S1", "F1#WA1#S2"}},
		{"by parent", "/inventory/records?parent=F1", fiber.StatusOK, []string{"F1#SRV1", "F1#WA1"}},
		{"limit", "/inventory/records?category=Site&limit=1", fiber.StatusOK, []string{"F1#WA1#S1"}},
		{"unknown category", "/inventory/records?category=Gadget", fiber.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.ids == nil {
				return
			}

			var records []reconcile.Record
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.ElementsMatch(t, tt.ids, ids)
		})
	}
}

func TestHandleCycleFailure(t *testing.T) {
	app, f := newTestApp(t)
	f.collector.err = poller.Unavailable(errors.New("share offline"))

	resp, err := app.Test(httptest.NewRequest("POST", "/inventory/cycle", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
