package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "warn")
	log.Info().Msg("hidden")
	log.Warn().Int("rows", 3).Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if ev["message"] != "shown" || ev["level"] != "warn" || ev["rows"] != float64(3) {
		t.Errorf("event = %v", ev)
	}
}

func TestNewLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "nonsense")
	log.Debug().Msg("debug")
	log.Info().Msg("info")
	if strings.Contains(buf.String(), `"debug"`) || !strings.Contains(buf.String(), `"info"`) {
		t.Errorf("want info level, got:\n%s", buf.String())
	}
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	log, id := WithRun(New(&buf, "json", "info"))
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}
	log.Info().Msg("x")
	if !strings.Contains(buf.String(), `"run_id":"`+id+`"`) {
		t.Errorf("run_id missing:\n%s", buf.String())
	}
}
