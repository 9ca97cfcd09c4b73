package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/knwebagency/backend/internal/offers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) getStarterSlots(ctx context.Context) offers.StarterSlots {
	t := s.T()
	req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/offers/starter/slots", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	slotsBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var slots offers.StarterSlots
	require.NoError(t, json.Unmarshal(slotsBytes, &slots))
	return slots
}

// Runs before TestStarterSlots, while the slots row was never written yet:
// the first decrement must seed the defaults and take one slot, exactly as
// the public GET advertises.
func (s *IntegrationTestSuite) TestFreshStarterSlotsDecrement() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slots := s.getStarterSlots(ctx)
	assert.Equal(t, 10, slots.TotalSlots)
	assert.Equal(t, 10, slots.RemainingSlots)

	token := doLogin(ctx, t)

	decReq := newAdminRequest(ctx, t, "POST", "/admin/api/offers/starter/slots/decrement", token, nil)
	resp, err := http.DefaultClient.Do(decReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	slotsBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decremented offers.StarterSlots
	require.NoError(t, json.Unmarshal(slotsBytes, &decremented))
	assert.Equal(t, 10, decremented.TotalSlots)
	assert.Equal(t, 9, decremented.RemainingSlots)

	slots = s.getStarterSlots(ctx)
	assert.Equal(t, 9, slots.RemainingSlots)
}

func (s *IntegrationTestSuite) TestStarterSlots() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := doLogin(ctx, t)

	// start from a known state
	resetBody := bytes.NewBufferString(`{"total_slots": 3}`)
	resetReq := newAdminRequest(ctx, t, "POST", "/admin/api/offers/starter/slots/reset", token, resetBody)
	resp, err := http.DefaultClient.Do(resetReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	slots := s.getStarterSlots(ctx)
	assert.Equal(t, 3, slots.TotalSlots)
	assert.Equal(t, 3, slots.RemainingSlots)

	// burn through all slots
	for i := 0; i < 3; i++ {
		decReq := newAdminRequest(ctx, t, "POST", "/admin/api/offers/starter/slots/decrement", token, nil)
		resp, err = http.DefaultClient.Do(decReq)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	slots = s.getStarterSlots(ctx)
	assert.Equal(t, 0, slots.RemainingSlots)

	// nothing left to decrement
	decReq := newAdminRequest(ctx, t, "POST", "/admin/api/offers/starter/slots/decrement", token, nil)
	resp, err = http.DefaultClient.Do(decReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
