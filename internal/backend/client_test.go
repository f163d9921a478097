package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAskReturnsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["question"] != "What is in the document?" {
			t.Errorf("unexpected question: %q", body["question"])
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "It contains X."})
	}))
	defer server.Close()

	c := NewClient(server.URL, server.URL)
	answer, err := c.Ask(context.Background(), "What is in the document?")
	require.NoError(t, err)
	require.Equal(t, "It contains X.", answer)
}

func TestAskFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		},
		"missing answer": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"x"}`))
		},
		"answer not string": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"answer":42}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(h)
			defer server.Close()
			_, err := NewClient(server.URL, server.URL).Ask(context.Background(), "q")
			require.Error(t, err)
			if name == "status" {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				require.Equal(t, http.StatusInternalServerError, se.Code)
			} else {
				require.ErrorIs(t, err, ErrMalformedResponse)
			}
		})
	}
}

func TestAskTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()
	_, err := NewClient(url, url).Ask(context.Background(), "q")
	require.Error(t, err)
}

func TestAskHonoursContextDeadline(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(server.URL, server.URL).Ask(ctx, "q")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngestSendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "report.pdf" || string(data) != "%PDF-1.4 body" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := NewClient(server.URL, server.URL).Ingest(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
}

func TestIngestErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "unsupported file type", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewClient(server.URL, server.URL).Ingest(context.Background(), "report.pdf", strings.NewReader("x"))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadRequest, se.Code)
	require.Contains(t, se.Error(), "unsupported file type")
}

func TestClientLeavesDeadlinesToContext(t *testing.T) {
	c := NewClient("http://example.invalid/query", "http://example.invalid/upload")
	require.Zero(t, c.client.Timeout, "a transport timeout would cap long configured upload timeouts")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"late but fine"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	answer, err := NewClient(server.URL, server.URL).Ask(ctx, "q")
	require.NoError(t, err)
	require.Equal(t, "late but fine", answer)
}
