package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/goldilocks-keeper/internal/model"
)

type lines []string

func (l lines) PlainLines() []string { return l }

func TestRenderJSONEnvelope(t *testing.T) {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    model.StirPlanView{Mode: "full", StirAmount: "3", Percentage: 100},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now(), Command: "plan"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, "json"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	data := out["data"].(map[string]any)
	if data["mode"] != "full" || data["percentage"].(float64) != 100 {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestRenderPlainFlattensNestedFields(t *testing.T) {
	env := model.Envelope{
		Success: true,
		Data: model.PlanView{
			BorrowLimit: "10",
			Stir:        model.StirPlanView{Mode: "partial", Percentage: 83},
		},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, "plain"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"borrow_limit=10", "stir.mode=partial", "stir.percentage=83"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in plain output: %s", want, got)
		}
	}
}

func TestRenderPlainUsesPlainLines(t *testing.T) {
	env := model.Envelope{Success: true, Data: lines{"✅ Borrowed 1.0000 HONEY", "ℹ️ No PORRIDGE to claim"}}
	var buf bytes.Buffer
	if err := Render(&buf, env, "plain"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "✅ Borrowed 1.0000 HONEY\nℹ️ No PORRIDGE to claim\n" {
		t.Fatalf("unexpected plain output: %q", buf.String())
	}
}

func TestRenderPlainError(t *testing.T) {
	env := model.Envelope{Error: &model.ErrorBody{Code: 1, Type: "configuration_error", Message: "RPC_URL is required"}}
	var buf bytes.Buffer
	if err := Render(&buf, env, "plain"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "error: RPC_URL is required") {
		t.Fatalf("unexpected plain output: %q", buf.String())
	}
}
