package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCSRFCheck(t *testing.T) {
	csrf := auth.NewCSRF("test-secret")
	validToken := csrf.Token("session-1")

	testCases := []struct {
		name           string
		method         string
		path           string
		session        string
		header         string
		expectedStatus int
		expectRejected bool
	}{
		{
			name:           "GetIsNotChecked",
			method:         http.MethodGet,
			path:           "/api/data",
			session:        "session-1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PostWithValidToken",
			method:         http.MethodPost,
			path:           "/api/log-workout",
			session:        "session-1",
			header:         validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PostWithoutToken",
			method:         http.MethodPost,
			path:           "/api/log-workout",
			session:        "session-1",
			expectedStatus: http.StatusForbidden,
			expectRejected: true,
		},
		{
			name:           "DeleteWithTokenOfOtherSession",
			method:         http.MethodDelete,
			path:           "/api/sets/3",
			session:        "session-2",
			header:         validToken,
			expectedStatus: http.StatusForbidden,
			expectRejected: true,
		},
		{
			name:           "LoginIsExempt",
			method:         http.MethodPost,
			path:           "/login",
			session:        "session-1",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NoSessionLeftToAuth",
			method:         http.MethodPost,
			path:           "/api/update-user",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metricsManager := metrics.NewTestManager()
			handler := middleware.CSRFCheck(csrf, testCookies, metricsManager)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
			)

			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.session != "" {
				req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: tc.session})
			}
			if tc.header != "" {
				req.Header.Set(auth.CSRFHeaderName, tc.header)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			rejected := 0.0
			if tc.expectRejected {
				rejected = 1
				assert.JSONEq(t, `{"error":"Invalid CSRF token"}`, rr.Body.String())
			}
			assert.Equal(t, rejected, testutil.ToFloat64(metricsManager.CounterCSRFRejected))
		})
	}
}
