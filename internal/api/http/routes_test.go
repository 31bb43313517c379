package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssessor struct {
	got []entities.Coordinate
}

func (s *stubAssessor) Assess(_ context.Context, coord entities.Coordinate) forecast.Assessment {
	s.got = append(s.got, coord)
	return forecast.Assessment{
		Findings: forecast.Report{
			{Rule: forecast.RuleGeomagnetic, Severity: forecast.SeverityHigh, Description: "магнитная буря, Kp-индекс до 5"},
		},
		Message: "message",
		Sources: []string{forecast.SourceGeomagnetic},
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&stubAssessor{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok","service":"ache-o-meter"}`, string(body))
}

func TestRisk(t *testing.T) {
	assessor := &stubAssessor{}
	app := NewApp(assessor)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/risk?lat=55.75&lon=37.62", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, assessor.got, 1)
	assert.Equal(t, entities.Coordinate{Latitude: 55.75, Longitude: 37.62}, assessor.got[0])

	var payload struct {
		Findings []struct {
			Rule        string `json:"rule"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
		} `json:"findings"`
		Message string   `json:"message"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Findings, 1)
	assert.Equal(t, forecast.RuleGeomagnetic, payload.Findings[0].Rule)
	assert.Equal(t, forecast.SeverityHigh.String(), payload.Findings[0].Severity)
	assert.Equal(t, "message", payload.Message)
	assert.Equal(t, []string{forecast.SourceGeomagnetic}, payload.Sources)
}

func TestRiskRejectsBadCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"not a number", "?lat=north&lon=37"},
		{"missing lon", "?lat=55"},
		{"latitude out of range", "?lat=95&lon=37"},
		{"longitude out of range", "?lat=55&lon=-200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessor := &stubAssessor{}
			app := NewApp(assessor)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/risk"+tt.query, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, assessor.got)

			var payload map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			assert.Equal(t, true, payload["error"])
		})
	}
}
