package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/customers/CUST-001":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"CUST-001","name":"Warung Ibu Sari"}`))
		case "/api/v1/customers/CUST-404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	name, found, err := client.Lookup(ctx, "CUST-001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Warung Ibu Sari", name)

	_, found, err = client.Lookup(ctx, "CUST-404")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = client.Lookup(ctx, "CUST-BROKEN")
	require.Error(t, err)
}
