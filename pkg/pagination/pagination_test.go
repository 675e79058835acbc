package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name        string
		page, limit int
		want        Params
	}{
		{"defaults", 0, 0, Params{Page: 1, Limit: 20, Offset: 0}},
		{"negative", -3, -1, Params{Page: 1, Limit: 20, Offset: 0}},
		{"capped limit", 2, 500, Params{Page: 2, Limit: 100, Offset: 100}},
		{"plain window", 3, 10, Params{Page: 3, Limit: 10, Offset: 20}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.page, tc.limit); got != tc.want {
				t.Fatalf("Normalize(%d, %d) = %+v, want %+v", tc.page, tc.limit, got, tc.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=4&limit=25", nil)
	if got := Parse(c); got != (Params{Page: 4, Limit: 25, Offset: 75}) {
		t.Fatalf("unexpected params: %+v", got)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=abc&limit=", nil)
	if got := Parse(c); got != (Params{Page: 1, Limit: 20, Offset: 0}) {
		t.Fatalf("malformed query must fall back to defaults, got %+v", got)
	}
}
