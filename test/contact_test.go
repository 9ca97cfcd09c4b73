package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/knwebagency/backend/internal/contact"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestContactMessages() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submission := map[string]any{
		"full_name":        "Marie Dupont",
		"email":            "marie@example.com",
		"company_name":     "Dupont SARL",
		"project_type":     "site-vitrine",
		"estimated_budget": "2000-5000",
		"message":          "Bonjour, nous cherchons un site vitrine pour notre boutique.",
	}
	submissionJson, err := json.Marshal(submission)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/contact", bytes.NewBuffer(submissionJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	submitBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submitResp struct {
		Added bool   `json:"added"`
		ID    string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(submitBytes, &submitResp))
	assert.True(t, submitResp.Added)
	require.NotEmpty(t, submitResp.ID)

	// admin side: list, then delete what we just added
	token := doLogin(ctx, t)

	listReq := newAdminRequest(ctx, t, "GET", "/admin/api/messages", token, nil)
	resp, err = http.DefaultClient.Do(listReq)
	require.NoError(t, err)
	listBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listResp struct {
		Messages []contact.Message `json:"messages"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(listBytes, &listResp))
	require.NotEmpty(t, listResp.Messages)
	assert.Equal(t, submitResp.ID, listResp.Messages[0].ID)
	assert.Equal(t, "Marie Dupont", listResp.Messages[0].FullName)

	deleteReq := newAdminRequest(ctx, t, "DELETE", fmt.Sprintf("/admin/api/messages/%s", submitResp.ID), token, nil)
	resp, err = http.DefaultClient.Do(deleteReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// delete again: gone
	deleteReq = newAdminRequest(ctx, t, "DELETE", fmt.Sprintf("/admin/api/messages/%s", submitResp.ID), token, nil)
	resp, err = http.DefaultClient.Do(deleteReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestContactMessages_suspiciousRejected() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submission := map[string]any{
		"full_name": "Spam Bot",
		"email":     "bot@example.com",
		"message":   "check out https://totally-legit.example.com for cheap backlinks",
	}
	submissionJson, err := json.Marshal(submission)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/contact", bytes.NewBuffer(submissionJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
