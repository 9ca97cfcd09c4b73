package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		loginReq           loginRequest
		expectedStatusCode int
		assertFunc         func(resp *http.Response)
	}{
		"good creds": {
			loginReq: loginRequest{
				Email:    testAdminEmail,
				Password: testPassword,
			},
			expectedStatusCode: http.StatusOK,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				var loginResp loginResponse
				require.NoError(t, json.Unmarshal(respBytes, &loginResp))
				assert.True(t, loginResp.Success)
				assert.NotEmpty(t, loginResp.Token)
				assert.Equal(t, testAdminEmail, loginResp.User.Email)

				var sessionCookie *http.Cookie
				for _, c := range resp.Cookies() {
					if c.Name == "kn_session" {
						sessionCookie = c
					}
				}
				require.NotNil(t, sessionCookie)
				assert.Equal(t, loginResp.Token, sessionCookie.Value)
				assert.True(t, sessionCookie.HttpOnly)
			},
		},
		"wrong password": {
			loginReq: loginRequest{
				Email:    testAdminEmail,
				Password: "not-the-password",
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"unknown email": {
			loginReq: loginRequest{
				Email:    "nobody@knwebagency.com",
				Password: testPassword,
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"empty creds": {
			loginReq:           loginRequest{},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			loginReqJson, err := json.Marshal(tc.loginReq)
			require.NoError(t, err)

			req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/admin/api/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			if tc.assertFunc != nil {
				tc.assertFunc(resp)
			}
		})
	}
}

func (s *IntegrationTestSuite) TestLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := doLogin(ctx, t)

	// session is live: me reports the principal as authorized
	req := newAdminRequest(ctx, t, "GET", "/admin/api/me", token, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	meBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(meBytes), `"authorized": true`)

	req = newAdminRequest(ctx, t, "GET", "/admin/api/logout", token, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// session gone: me degrades to a null user instead of an error
	req = newAdminRequest(ctx, t, "GET", "/admin/api/me", token, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	meBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(meBytes), `"user": null`)
}

func (s *IntegrationTestSuite) TestAdminArea_noSession() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/admin/api/dashboard/stats", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.Contains(t, location, "/admin/login")
	assert.Contains(t, location, "returnUrl=")
}
