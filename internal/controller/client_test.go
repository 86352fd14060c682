package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Error("Expected error for relative URL")
	}
	if _, err := NewClient("://broken"); err == nil {
		t.Error("Expected error for unparsable URL")
	}
}

func TestLatestRecords_Success(t *testing.T) {
	var gotPath, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"RTD": 21.4, "CONDUCTIVITY": 75, "PH": 5.1, "DISSOLVED_OXYGEN": 6.2, "timestamp": "2025-01-01 10:05:00"},
			{"RTD": 21.3, "CONDUCTIVITY": null, "PH": 5.0, "timestamp": "2025-01-01 10:00:00"}
		]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	records, err := client.LatestRecords(context.Background(), 24)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotPath != "/api/data" {
		t.Errorf("Expected path /api/data, got %s", gotPath)
	}
	if gotLimit != "24" {
		t.Errorf("Expected limit 24, got %s", gotLimit)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].RTD == nil || *records[0].RTD != 21.4 {
		t.Errorf("Expected RTD 21.4, got %v", records[0].RTD)
	}
	if records[1].Conductivity != nil {
		t.Errorf("Expected null conductivity, got %v", *records[1].Conductivity)
	}
	if records[1].DissolvedOxygen != nil {
		t.Error("Expected missing dissolved oxygen to decode as nil")
	}
	if records[0].Timestamp != "2025-01-01 10:05:00" {
		t.Errorf("Unexpected timestamp %q", records[0].Timestamp)
	}
}

func TestLatestRecords_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
					t.Errorf("Expected StatusError 500, got %v", err)
				}
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"not": "an array"`))
			},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("Expected decode error")
				}
			},
		},
		{
			name: "empty array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[]`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyResult) {
					t.Errorf("Expected ErrEmptyResult, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client, err := NewClient(server.URL)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			records, err := client.LatestRecords(context.Background(), 1)
			if records != nil {
				t.Errorf("Expected no records, got %d", len(records))
			}
			tt.check(t, err)
		})
	}
}

func TestLatestRecords_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := client.LatestRecords(context.Background(), 1); err == nil {
		t.Error("Expected timeout error")
	}
}

func TestNewClient_TimeoutReachesTransport(t *testing.T) {
	tests := []struct {
		name string
		opts []ClientOption
		want time.Duration
	}{
		{"default", nil, DefaultTimeout},
		{"above default", []ClientOption{WithTimeout(45 * time.Second)}, 45 * time.Second},
		{"below default", []ClientOption{WithTimeout(2 * time.Second)}, 2 * time.Second},
		{"zero ignored", []ClientOption{WithTimeout(0)}, DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("http://controller.local", tt.opts...)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			if client.httpClient.Timeout != tt.want {
				t.Errorf("Expected client timeout %v, got %v", tt.want, client.httpClient.Timeout)
			}
			transport, ok := client.httpClient.Transport.(*http.Transport)
			if !ok {
				t.Fatalf("Expected *http.Transport, got %T", client.httpClient.Transport)
			}
			if transport.ResponseHeaderTimeout != tt.want {
				t.Errorf("Expected header timeout %v, got %v", tt.want, transport.ResponseHeaderTimeout)
			}
		})
	}
}

func TestNewClient_CustomHTTPClient(t *testing.T) {
	custom := &http.Client{}
	client, err := NewClient("http://controller.local", WithHTTPClient(custom), WithTimeout(3*time.Second))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if client.httpClient != custom || custom.Timeout != 3*time.Second {
		t.Errorf("Expected custom client with 3s timeout, got %v", client.httpClient.Timeout)
	}
}
