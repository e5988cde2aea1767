package fuzz

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// FuzzHTTPAPIClick fuzzes the JSON click endpoint
func FuzzHTTPAPIClick(f *testing.F) {
	// Seed corpus with valid examples
	f.Add(`{"x":10,"y":20}`)
	f.Add(`{"x":1,"y":1,"selection":{"team":"A","player":"B","opponentType":"京大","pitcherHandedness":"右","runnerState":"なし","strikeCount":0,"pitchCourse":"内角","pitchHeight":"高め","pitchType":"ストレート","hitType":"ゴロ"}}`)
	f.Add(`{"x":-1,"y":99999}`)
	f.Add(`{"selection":null}`)

	f.Fuzz(func(t *testing.T, data string) {
		mux := newFixture(t).mux(t)

		req := httptest.NewRequest(http.MethodPost, "/api/click", bytes.NewBufferString(data))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		// Must not panic; only client errors or success are acceptable
		if w.Code != http.StatusOK && w.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status %d for %q", w.Code, data)
		}
	})
}

// FuzzHTTPFormClick fuzzes the form click endpoint with arbitrary coordinates and labels
func FuzzHTTPFormClick(f *testing.F) {
	f.Add("TeamA", "鈴木", "ストレート", "ゴロ", "1", "10", "20")
	f.Add("", "", "", "", "", "", "")
	f.Add("T", "P", "カーブ", "ライナー", "9", "-5", "1e9")

	f.Fuzz(func(t *testing.T, team, player, pitchType, hitType, strikes, x, y string) {
		mux := newFixture(t).mux(t)

		form := url.Values{
			"team_name":   {team},
			"player_name": {player},
			"pitch_type":  {pitchType},
			"hit_type":    {hitType},
			"strikes":     {strikes},
			"field.x":     {x},
			"field.y":     {y},
		}
		req := httptest.NewRequest(http.MethodPost, "/click", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusSeeOther && w.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status %d", w.Code)
		}
	})
}

// FuzzHTTPDeleteRecord fuzzes the JSON delete endpoint
func FuzzHTTPDeleteRecord(f *testing.F) {
	f.Add(`{"id":"00000000-0000-0000-0000-000000000000"}`)
	f.Add(`{"id":""}`)
	f.Add(`{}`)

	f.Fuzz(func(t *testing.T, data string) {
		mux := newFixture(t).mux(t)

		req := httptest.NewRequest(http.MethodPost, "/api/records/delete", bytes.NewBufferString(data))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)
	})
}

// FuzzHTTPPlayers fuzzes the team lookup, including path-like team names
func FuzzHTTPPlayers(f *testing.F) {
	f.Add("TeamA")
	f.Add("../../etc/passwd")
	f.Add("hitting_data")

	f.Fuzz(func(t *testing.T, team string) {
		mux := newFixture(t).mux(t)

		req := httptest.NewRequest(http.MethodGet, "/api/players?team="+url.QueryEscape(team), nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code == http.StatusOK {
			t.Fatalf("empty roster directory answered 200 for %q", team)
		}
	})
}
