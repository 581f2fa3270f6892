package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/config"
)

const coinsuranceEvent = `{
	"actionGroup": "cost-tools",
	"apiPath": "/calculateCoinsurance",
	"requestBody": {"content": {"application/json": {"properties": [
		{"name": "amount", "value": "500"}
	]}}}
}`

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvConfigPath, "")
}

func TestRunReadsStdin(t *testing.T) {
	isolateConfig(t)

	var out bytes.Buffer
	if err := run(nil, strings.NewReader(coinsuranceEvent), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var resp action.Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if resp.Response.HTTPMethod != "POST" {
		t.Fatalf("expected default method POST, got %q", resp.Response.HTTPMethod)
	}
	if !strings.Contains(resp.Body(), `"coinsurance_amount":100`) {
		t.Fatalf("expected coinsurance of 100 in body, got %s", resp.Body())
	}
}

func TestRunReadsEventFile(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(coinsuranceEvent), 0o600); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	var out bytes.Buffer
	if err := run([]string{"-event", path}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), `"apiPath": "/calculateCoinsurance"`) {
		t.Fatalf("expected apiPath echoed, got %s", out.String())
	}
}

func TestRunPrintsSchema(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-schema"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("expected JSON schema output: %v", err)
	}
	if doc["openapi"] != "3.0.0" {
		t.Fatalf("expected openapi 3.0.0, got %#v", doc["openapi"])
	}
}

func TestRunMissingEventFile(t *testing.T) {
	isolateConfig(t)

	err := run([]string{"-event", filepath.Join(t.TempDir(), "nope.json")}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for a missing event file")
	}
}
