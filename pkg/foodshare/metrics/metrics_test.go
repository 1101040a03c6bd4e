package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/foods/:id/share-link", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/foods/:id/share-link", "200"))

	for _, id := range []string{"1", "2"} {
		resp := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/foods/"+id+"/share-link", nil)
		r.ServeHTTP(resp, req)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/foods/:id/share-link", "200"))
	assert.Equal(t, before+2, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(claims.WithLabelValues("created"))
	RecordClaim("created")
	assert.Equal(t, before+1, testutil.ToFloat64(claims.WithLabelValues("created")))

	SetExpiringProducts(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(expiringProducts))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordLogin("success")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "foodshare_auth_login_attempts_total"))
}
