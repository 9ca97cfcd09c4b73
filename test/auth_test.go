package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/knwebagency/backend/internal/auth"

	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	User    auth.Principal `json:"user"`
}

func doLogin(ctx context.Context, t *testing.T) string {
	loginReq := loginRequest{
		Email:    testAdminEmail,
		Password: testPassword,
	}
	loginReqJson, err := json.Marshal(loginReq)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/admin/api/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, respBytes)

	var loginResp loginResponse
	require.NoError(t, json.Unmarshal(respBytes, &loginResp))
	require.True(t, loginResp.Success)
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token
}

// newAdminRequest builds a request carrying the session token the way the
// admin SPA does, via the X-KN-TOKEN header.
func newAdminRequest(ctx context.Context, t *testing.T, method, path, token string, body io.Reader) *http.Request {
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, body)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KN-TOKEN", token)
	return req
}
