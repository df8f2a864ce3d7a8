package stamps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/validate-subscription", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p model.PurchaseConfirmation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		if p.PurchaseToken != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"productId":"` + p.ProductID + `"}`))
	}))
	defer srv.Close()

	b, err := NewBackend(srv.URL + "/")
	require.NoError(t, err)

	id, err := b.Validate(context.Background(), model.PurchaseConfirmation{ProductID: "fidelapp_pro_mensal", PurchaseToken: "good"})
	require.NoError(t, err)
	require.Equal(t, "fidelapp_pro_mensal", id)

	_, err = b.Validate(context.Background(), model.PurchaseConfirmation{ProductID: "fidelapp_pro_mensal", PurchaseToken: "bad"})
	require.ErrorContains(t, err, "invalid token")
}

func TestValidateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b, err := NewBackend(srv.URL)
	require.NoError(t, err)
	_, err = b.Validate(context.Background(), model.PurchaseConfirmation{ProductID: "x", PurchaseToken: "y"})
	require.ErrorContains(t, err, "502")
}

func TestNewBackendRequiresURL(t *testing.T) {
	_, err := NewBackend("")
	require.Error(t, err)
}
