package verify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "verify-test: ", log.LstdFlags)
}

func TestVerify_Success(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("Request body not valid JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"confidence_score": 0.82,
			"isVerified":       true,
			"matching_details": []string{"headline matches source"},
			"discrepancies":    []string{},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, testLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	result, err := client.Verify(context.Background(), "Title A", "Desc A", "https://x.test/a")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.ConfidenceScore != 0.82 {
		t.Errorf("ConfidenceScore = %v, want 0.82", result.ConfidenceScore)
	}
	if !result.IsVerified {
		t.Error("IsVerified = false, want true")
	}
	if len(result.MatchingDetails) != 1 {
		t.Errorf("MatchingDetails = %v, want one item", result.MatchingDetails)
	}

	// The wire shape is fixed: headline, description, source_url.
	want := map[string]string{
		"headline":    "Title A",
		"description": "Desc A",
		"source_url":  "https://x.test/a",
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("Request field %s = %q, want %q", k, gotBody[k], v)
		}
	}
}

func TestVerify_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client, err := NewClient(server.URL, testLogger())
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		_, err = client.Verify(context.Background(), "t", "d", "u")
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Verify() with status %d: error = %v, want ErrUnavailable", status, err)
		}
		server.Close()
	}
}

func TestVerify_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Close immediately so the endpoint refuses connections.
	server.Close()

	client, err := NewClient(server.URL, testLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.Verify(context.Background(), "t", "d", "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Verify() against closed server: error = %v, want ErrUnavailable", err)
	}
}

func TestVerify_MalformedResponse(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not JSON", "this is not json"},
		{"score above range", `{"confidence_score": 1.5, "isVerified": true}`},
		{"score below range", `{"confidence_score": -0.1, "isVerified": false}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tc.body)
			}))
			defer server.Close()

			client, err := NewClient(server.URL, testLogger())
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			_, err = client.Verify(context.Background(), "t", "d", "u")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Verify() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	if _, err := NewClient("", testLogger()); err == nil {
		t.Error("NewClient(\"\") error = nil, want configuration error")
	}
}
