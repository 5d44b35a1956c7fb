package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "github.com/taskdesk/eligibility-service/internal/http"
	"github.com/taskdesk/eligibility-service/internal/http/ratelimit"
)

func testHTTPClient() *httpclient.Client {
	return httpclient.NewClient(ratelimit.Config{
		RequestsPerSecond: 1000,
		Burst:             1000,
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})
}

func TestCandidates(t *testing.T) {
	t.Run("fetches and decodes the pool", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"id":1,"department":"ops","experience_years":3,"active_task_count":2},
				{"id":2,"department":"sales","experience_years":1,"active_task_count":0,"extra_field":"ignored"}
			]`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testHTTPClient(), zerolog.Nop())
		pool, err := client.Candidates(context.Background())
		require.NoError(t, err)

		require.Len(t, pool, 2)
		assert.Equal(t, 1, pool[0].ID)
		assert.Equal(t, "ops", pool[0].Department)
		assert.Equal(t, 3, pool[0].ExperienceYears)
		assert.Equal(t, 2, pool[0].ActiveTaskCount)
		assert.Equal(t, "sales", pool[1].Department)
	})

	t.Run("trailing slash in base URL is normalized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users", r.URL.Path)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL+"/", testHTTPClient(), zerolog.Nop())
		pool, err := client.Candidates(context.Background())
		require.NoError(t, err)
		assert.Empty(t, pool)
	})

	t.Run("server error is returned to the caller", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testHTTPClient(), zerolog.Nop())
		_, err := client.Candidates(context.Background())
		require.Error(t, err)

		var reqErr *ratelimit.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusInternalServerError, reqErr.LastStatus)
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, testHTTPClient(), zerolog.Nop())
		_, err := client.Candidates(context.Background())
		assert.Error(t, err)
	})
}
