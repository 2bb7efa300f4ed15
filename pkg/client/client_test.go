package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/registration-service/pkg/client"
)

func newClient(baseURL string, opts ...func(*client.Config)) *client.Client {
	cfg := client.Config{
		BaseURL:      baseURL,
		Timeout:      2 * time.Second,
		RetryBackoff: time.Millisecond,
		AdminToken:   "test-token",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return client.New(cfg)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func errorEnvelope(code, message string) map[string]any {
	return map[string]any{
		"success": false,
		"message": message,
		"error":   map[string]string{"code": code, "message": message},
	}
}

func TestCheckStatusFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/check-pending-registration", r.URL.Path)
		require.Equal(t, "someone@example.edu", r.URL.Query().Get("email"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"id":     "reg-1",
				"email":  "someone@example.edu",
				"status": client.StatusPendingApproval,
			},
		})
	}))
	defer srv.Close()

	reg, err := newClient(srv.URL).CheckStatus(context.Background(), "someone@example.edu")
	require.NoError(t, err)
	require.Equal(t, "reg-1", reg.ID)
	require.Equal(t, client.StatusPendingApproval, reg.Status)
}

func TestCheckStatusAbsenceIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	reg, err := newClient(srv.URL).CheckStatus(context.Background(), "nobody@example.edu")
	require.NoError(t, err)
	require.Nil(t, reg)
}

func TestApproveParsesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/admin/approve-registration", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "reg-1", body["registrationId"])
		require.Equal(t, "approve", body["action"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Student registration approved successfully",
			"credentials": map[string]string{
				"email":    "someone@example.edu",
				"password": "Ab3dEf9h",
				"prn":      "PRN260042",
			},
		})
	}))
	defer srv.Close()

	creds, err := newClient(srv.URL).Approve(context.Background(), "reg-1")
	require.NoError(t, err)
	require.Equal(t, "PRN260042", creds.PRN)
	require.Empty(t, creds.EmployeeID)
	require.Len(t, creds.Password, 8)
}

func TestRejectSendsReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "reject", body["action"])
		require.Equal(t, "incomplete documents", body["rejectionReason"])
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true, "message": "Registration rejected successfully"})
	}))
	defer srv.Close()

	err := newClient(srv.URL).Reject(context.Background(), "reg-1", "incomplete documents")
	require.NoError(t, err)
}

func TestBusinessErrorsKeepTheirCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict,
			errorEnvelope(client.CodeInvalidState, "registration is not pending approval. Current status: approved"))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Approve(context.Background(), "reg-1")
	require.True(t, client.IsInvalidState(err))
	require.False(t, client.IsTransport(err))

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newClient(srv.URL).CheckStatus(context.Background(), "x@example.edu")
	require.True(t, client.IsTransport(err))
	require.False(t, client.IsNotFound(err))
}

func TestMalformedErrorBodyIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream unavailable</html>"))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CheckStatus(context.Background(), "x@example.edu")
	require.True(t, client.IsTransport(err))
}

func TestGetRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newClient(srv.URL, func(cfg *client.Config) { cfg.MaxRetries = 3 })
	reg, err := c.CheckStatus(context.Background(), "x@example.edu")
	require.NoError(t, err)
	require.Nil(t, reg)
	require.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryBusinessErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusUnauthorized, errorEnvelope(client.CodeUnauthorized, "invalid token"))
	}))
	defer srv.Close()

	c := newClient(srv.URL, func(cfg *client.Config) { cfg.MaxRetries = 3 })
	_, err := c.ListPending(context.Background())
	require.Error(t, err)
	require.False(t, client.IsTransport(err))
	require.Equal(t, int32(1), calls.Load())
}

func TestPostNeverRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(srv.URL, func(cfg *client.Config) { cfg.MaxRetries = 3 })
	_, err := c.Approve(context.Background(), "reg-1")
	require.True(t, client.IsTransport(err))
	require.Equal(t, int32(1), calls.Load())
}

func TestSubmitReturnsRecordID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/register", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"success":                 true,
			"requiresApproval":        true,
			"pending_registration_id": "reg-9",
		})
	}))
	defer srv.Close()

	id, err := newClient(srv.URL).Submit(context.Background(), client.SubmitInput{
		Email:    "fresh@example.edu",
		UserType: "student",
	})
	require.NoError(t, err)
	require.Equal(t, "reg-9", id)
}

func TestFindAndApproveHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-pending-registration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "reg-7", "status": client.StatusPendingApproval},
		})
	})
	mux.HandleFunc("/api/admin/approve-registration", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "reg-7", body["registrationId"])
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success":     true,
			"credentials": map[string]string{"email": "x@example.edu", "password": "Ab3dEf9h", "prn": "PRN260007"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	creds, err := newClient(srv.URL).FindAndApprove(context.Background(), "x@example.edu")
	require.NoError(t, err)
	require.Equal(t, "PRN260007", creds.PRN)
}

func TestFindAndApproveNoRegistration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).FindAndApprove(context.Background(), "ghost@example.edu")
	require.ErrorIs(t, err, client.ErrNoRegistration)
}

func TestFindAndApproveRefusesDecidedRecord(t *testing.T) {
	var approveCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-pending-registration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "reg-3", "status": client.StatusApproved},
		})
	})
	mux.HandleFunc("/api/admin/approve-registration", func(w http.ResponseWriter, r *http.Request) {
		approveCalls.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newClient(srv.URL).FindAndApprove(context.Background(), "done@example.edu")
	require.ErrorIs(t, err, client.ErrNotPending)
	require.Equal(t, int32(0), approveCalls.Load())
}
