package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/devices"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/hubclient"
)

func newClient(t *testing.T, status int, body string) *devices.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/device-auth" || r.Header.Get("apikey") != "key" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return devices.NewClient(hubclient.New(config.ClientConfig{HubURL: server.URL, HubAPIKey: "key"}))
}

func TestRun(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		uid    string
		code   int
		output string
	}{
		{"valid", http.StatusOK, `{"is_valid":true,"device_id":"d1","device_name":"Bay 3"}`, "1a2b-3c4d-5e6f-7890-abcd-ef12", 0, "OK device Bay 3 (d1)"},
		{"rejected", http.StatusUnauthorized, `{"is_valid":false,"error":"device_not_found","message":"Device not found or inactive"}`, "1A2B3C4D5E6F7890ABCDEF12", 1, "FAILED 1A2B-3C4D-5E6F-7890-ABCD-EF12: Device not found or inactive"},
		{"malformed", http.StatusOK, `{}`, "123", 2, "UID must be exactly 24 hexadecimal characters"},
		{"empty", http.StatusOK, `{}`, "", 2, "Please enter a UID"},
		{"server error", http.StatusInternalServerError, `{"error":"server_error"}`, "1A2B3C4D5E6F7890ABCDEF12", 2, "try again later"},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		code := run(context.Background(), newClient(t, tc.status, tc.body), tc.uid, &out)
		if code != tc.code {
			t.Fatalf("%s: expected exit %d, got %d (%s)", tc.name, tc.code, code, out.String())
		}
		if !strings.Contains(out.String(), tc.output) {
			t.Fatalf("%s: expected output containing %q, got %q", tc.name, tc.output, out.String())
		}
	}
}
