package qrcode

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestHandler_getQRCode(t *testing.T) {
	handler := NewHandler("https://www.knwebagency.com")
	router := mux.NewRouter()
	handler.SetupRoutes(router.PathPrefix("/admin/api/qrcodes").Subrouter())

	t.Run("known persons get a png", func(t *testing.T) {
		for _, person := range []string{"ceo", "cto"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/qrcodes/"+person, nil))

			require.Equal(t, http.StatusOK, rec.Code, person)
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"), person)
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic), person)
		}
	})

	t.Run("unknown person", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/qrcodes/intern", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
