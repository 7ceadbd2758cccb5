package carbon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_TodayIntensity(t *testing.T) {
	var gotAccept, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"from":"2024-05-01T00:00Z","to":"2024-05-01T00:30Z","intensity":{"forecast":120,"actual":118,"index":"moderate"}},
			{"from":"2024-05-01T00:30Z","to":"2024-05-01T01:00Z","intensity":{"forecast":110,"actual":null,"index":"low"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", srv.Client())
	payload, err := client.TodayIntensity(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "/intensity/date", gotPath)
	require.Len(t, payload.Data, 2)
	assert.Equal(t, 120, payload.Data[0].Intensity.Forecast)
	require.NotNil(t, payload.Data[0].Intensity.Actual)
	assert.Equal(t, 118, *payload.Data[0].Intensity.Actual)
	assert.Nil(t, payload.Data[1].Intensity.Actual)
	assert.Equal(t, "low", payload.Data[1].Intensity.Index)
}

func TestClient_GenerationMix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"data":{"from":"2024-05-01T11:30Z","to":"2024-05-01T12:00Z","generationmix":[
			{"fuel":"gas","perc":40.5},{"fuel":"wind","perc":59.5}
		]}}`))
	}))
	defer srv.Close()

	payload, err := NewClient(srv.URL, nil).GenerationMix(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/generation", gotPath)
	require.Len(t, payload.Data.GenerationMix, 2)
	assert.Equal(t, "wind", payload.Data.GenerationMix[1].Fuel)
	assert.InDelta(t, 59.5, payload.Data.GenerationMix[1].Perc, 1e-9)
}

func TestClient_Errors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, nil).TodayIntensity(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": [`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, nil).GenerationMix(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode /generation")
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewClient(url, nil).TodayIntensity(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request /intensity/date")
	})
}
