package main

import (
	"encoding/json"
	"strings"
	"testing"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return env
}

func TestIngestThenBrandMetrics(t *testing.T) {
	env := setupCLITestEnv(t)
	channel := writeChannelFile(t, env.baseDir)

	out, _, err := runCLI(t, []string{"ingest", channel}, env.configPath)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	requireContains(t, out, "Competitor 1 (created): 2 new")

	out, _, err = runCLI(t, []string{"--json", "metrics", "brand", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("metrics brand: %v", err)
	}
	res := decodeEnvelope(t, out)
	if !res.Success {
		t.Fatalf("metrics failed: %s", res.Error)
	}
	var bundle struct {
		OrganicVsPaid struct {
			OrganicCount int `json:"organic_count"`
			PaidCount    int `json:"paid_count"`
		} `json:"organic_vs_paid"`
	}
	if err := json.Unmarshal(res.Payload, &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.OrganicVsPaid.OrganicCount != 1 || bundle.OrganicVsPaid.PaidCount != 1 {
		t.Fatalf("unexpected split %+v", bundle.OrganicVsPaid)
	}

	out, _, err = runCLI(t, []string{"competitors", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("competitors list: %v", err)
	}
	requireContains(t, out, "FR")

	out, _, err = runCLI(t, []string{"metrics", "countries"}, env.configPath)
	if err != nil {
		t.Fatalf("metrics countries: %v", err)
	}
	requireContains(t, out, "FR")
}

func TestRefreshUnknownChannelFails(t *testing.T) {
	env := setupCLITestEnv(t)
	channel := writeChannelFile(t, env.baseDir)

	_, _, err := runCLI(t, []string{"refresh", channel}, env.configPath)
	if err == nil {
		t.Fatal("expected refresh of an unknown channel to fail")
	}
	requireContains(t, err.Error(), "not_found:")
}

func TestUnknownCompetitorJSONEnvelope(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "metrics", "brand", "99"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure")
	}
	res := decodeEnvelope(t, out)
	if res.Success || !strings.HasPrefix(res.Error, "not_found:") {
		t.Fatalf("unexpected envelope %+v", res)
	}
}

func TestClassifyItemJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "classify", "item", "--title", "Comment réserver votre séjour"}, env.configPath)
	if err != nil {
		t.Fatalf("classify item: %v", err)
	}
	if res := decodeEnvelope(t, out); !res.Success {
		t.Fatalf("classify failed: %s", res.Error)
	}

	if _, _, err := runCLI(t, []string{"classify", "item"}, env.configPath); err == nil {
		t.Fatal("expected an empty title to fail")
	}
}

func TestTrainPromptDecline(t *testing.T) {
	env := setupCLITestEnv(t)
	channel := writeChannelFile(t, env.baseDir)
	if _, _, err := runCLI(t, []string{"ingest", channel}, env.configPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	for _, args := range [][]string{{"classify", "video", "v1", "help"}, {"classify", "video", "v2", "hero"}} {
		out, _, err := runCLI(t, args, env.configPath)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		requireContains(t, out, args[2]+" labelled "+args[3])
	}

	out, _, err := runCLIWithInput(t, []string{"train"}, env.configPath, strings.NewReader("n\n"))
	if err == nil {
		t.Fatal("expected declined training to fail")
	}
	requireContains(t, out, "2 human examples")
	requireContains(t, out, "Train now?")
	requireContains(t, err.Error(), "training cancelled")

	out, _, err = runCLI(t, []string{"train", "--yes", "--seed", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("train --yes: %v", err)
	}
	requireContains(t, out, "Training")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Readiness")
	requireContains(t, out, "Competitors")
	requireContains(t, out, "Never trained")

	out, _, err = runCLI(t, []string{"--json", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	if res := decodeEnvelope(t, out); !res.Success {
		t.Fatalf("status envelope failed: %s", res.Error)
	}
}

func TestSnapshotEmptyStub(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"snapshot"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, "Sentiment snapshot")
}

func TestAnalyseWithoutPendingComments(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"analyse"}, env.configPath)
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	requireContains(t, out, "No pending comments")
}

func TestCompetitorsDuplicatesEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	channel := writeChannelFile(t, env.baseDir)
	if _, _, err := runCLI(t, []string{"ingest", channel}, env.configPath); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, _, err := runCLI(t, []string{"competitors", "duplicates"}, env.configPath)
	if err != nil {
		t.Fatalf("competitors duplicates: %v", err)
	}
	requireContains(t, out, "No duplicate competitors")
}
