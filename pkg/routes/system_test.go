package routes_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(label))
	}
}

func TestBuildRegistersRoutes(t *testing.T) {
	r := routes.New(testLogger())
	r.RegisterRoute(routes.Route{Method: "GET", Pattern: "/healthz", Handler: ok("health")})

	srv := httptest.NewServer(r.Build())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "health" {
		t.Errorf("body = %q, want health", body)
	}
}

func TestBuildNestsGroupPrefixes(t *testing.T) {
	r := routes.New(testLogger())
	r.RegisterGroup(routes.Group{
		Prefix: "/api",
		Children: []routes.Group{
			{
				Prefix: "",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/jobs", Handler: ok("jobs")},
				},
			},
		},
	})

	srv := httptest.NewServer(r.Build())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestBuildEnforcesMethod(t *testing.T) {
	r := routes.New(testLogger())
	r.RegisterRoute(routes.Route{Method: "POST", Pattern: "/jobs", Handler: ok("created")})

	srv := httptest.NewServer(r.Build())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/jobs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
