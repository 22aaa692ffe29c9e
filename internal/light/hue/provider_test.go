package hue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dokzlo13/lightwire/internal/light"
)

// fakeBridge serves the subset of the Hue REST API the provider touches.
type fakeBridge struct {
	lights map[string]map[string]any
	sets   []string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		lights: map[string]map[string]any{
			"1": {
				"name":  "Ceiling",
				"state": map[string]any{"on": true, "bri": 127, "reachable": true},
			},
			"2": {
				"name":  "Corner",
				"state": map[string]any{"on": false, "bri": 254, "reachable": true},
			},
		},
	}
}

func (f *fakeBridge) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/testuser")
		switch {
		case path == "/lights" || path == "/lights/":
			json.NewEncoder(w).Encode(f.lights)

		case strings.HasSuffix(path, "/state") && r.Method == http.MethodPut:
			id := strings.TrimSuffix(strings.TrimPrefix(path, "/lights/"), "/state")
			if _, ok := f.lights[id]; !ok {
				f.writeNotFound(w, path)
				return
			}
			f.sets = append(f.sets, id)
			json.NewEncoder(w).Encode([]map[string]any{
				{"success": map[string]any{fmt.Sprintf("/lights/%s/state/bri", id): 200}},
			})

		case strings.HasPrefix(path, "/lights/"):
			id := strings.TrimPrefix(path, "/lights/")
			l, ok := f.lights[id]
			if !ok {
				f.writeNotFound(w, path)
				return
			}
			json.NewEncoder(w).Encode(l)

		default:
			f.writeNotFound(w, path)
		}
	})
}

func (f *fakeBridge) writeNotFound(w http.ResponseWriter, path string) {
	json.NewEncoder(w).Encode([]map[string]any{
		{"error": map[string]any{"type": 3, "address": path, "description": "resource not found"}},
	})
}

func testProvider(t *testing.T) (*Provider, *fakeBridge) {
	t.Helper()
	bridge := newFakeBridge()
	srv := httptest.NewServer(bridge.handler())
	t.Cleanup(srv.Close)
	return New(Config{Bridge: srv.URL, Token: "testuser"}), bridge
}

func TestDiscover(t *testing.T) {
	p, _ := testProvider(t)

	lights, err := p.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lights) != 2 {
		t.Fatalf("got %d lights, want 2", len(lights))
	}

	byID := map[light.ID]light.Light{}
	for _, l := range lights {
		byID[l.ID()] = l
	}
	ceiling, ok := byID["hue:1"]
	if !ok {
		t.Fatal("missing hue:1")
	}
	if ceiling.Label() != "Ceiling" {
		t.Errorf("label = %q, want Ceiling", ceiling.Label())
	}
	if got := ceiling.State().Brightness.Float(); got < 0.49 || got > 0.51 {
		t.Errorf("brightness = %v, want ~0.5", got)
	}
	if !ceiling.State().Power {
		t.Error("hue:1 should be on")
	}
	if byID["hue:2"].State().Power {
		t.Error("hue:2 should be off")
	}
}

func TestGetState(t *testing.T) {
	p, _ := testProvider(t)

	state, err := p.GetState(context.Background(), light.ID("hue:1"))
	if err != nil {
		t.Fatal(err)
	}
	if state.Label != "Ceiling" {
		t.Errorf("label = %q, want Ceiling", state.Label)
	}

	if _, err := p.GetState(context.Background(), light.ID("hue:99")); !errors.Is(err, light.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, err := p.GetState(context.Background(), light.ID("lifx:abc")); !errors.Is(err, light.ErrNotFound) {
		t.Errorf("foreign id error = %v, want ErrNotFound", err)
	}
}

func TestSetBrightness(t *testing.T) {
	p, bridge := testProvider(t)

	if err := p.SetBrightness(context.Background(), light.ID("hue:1"), light.NewBrightness(0.8)); err != nil {
		t.Fatal(err)
	}
	if len(bridge.sets) != 1 || bridge.sets[0] != "1" {
		t.Errorf("state writes = %v, want [1]", bridge.sets)
	}
}

func TestToBri(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{in: 0, want: 0},
		{in: 1, want: 254},
		{in: 0.5, want: 127},
		{in: 0.001, want: 1}, // nonzero stays visible
	}
	for _, tt := range tests {
		if got := toBri(light.NewBrightness(tt.in)); got != tt.want {
			t.Errorf("toBri(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
