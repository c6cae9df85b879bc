package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/server"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after prompt are moved first",
			args:     []string{"who is alice", "-k", "5"},
			expected: []string{"-k", "5", "who is alice"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "5", "who is alice"},
			expected: []string{"-k", "5", "who is alice"},
		},
		{
			name:     "prompt only returns unchanged",
			args:     []string{"who is alice"},
			expected: []string{"who is alice"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"alice"}, "alice"},
		{"multiple words", []string{"who", "is", "alice"}, "who is alice"},
		{"quoted phrase", []string{"who is alice"}, "who is alice"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinArgs(tt.args); got != tt.expected {
				t.Errorf("joinArgs(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8000 || cfg.Retrieval.TopK != 3 || cfg.Source.Type != "csv" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Source.Path != filepath.Join(filepath.Dir(path), "knowledge.csv") {
		t.Errorf("source path: got %q", cfg.Source.Path)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected an error when the file exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "kb.csv")
	if err := os.WriteFile(csvPath, []byte("name,city\nAlice,Lisbon\nBob,Paris\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Source.Path = csvPath
	cfg.Embedding.Dimensions = 32
	return cfg
}

func TestInitializeComponents(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.Source == nil {
		t.Fatal("expected a configured source")
	}
	if c.Engine.GenerationEnabled() {
		t.Error("generation should be disabled by default")
	}
	gen, err := c.Manager.ReloadFromSource(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gen.Snapshot.Len() != 2 {
		t.Errorf("chunks: got %d, want 2", gen.Snapshot.Len())
	}
	resp := c.Engine.Query(context.Background(), &models.QueryRequest{Prompt: "who lives in paris", K: 1})
	if resp.AnswerSource != models.AnswerLocal {
		t.Errorf("answer_source: got %q", resp.AnswerSource)
	}
}

func TestInitializeComponents_NoSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Path = ""
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Source != nil {
		t.Error("expected no source")
	}
}

func TestInitializeComponents_UnknownProviders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "nope"
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown embedding provider")
	}

	cfg = testConfig(t)
	cfg.Generation.Provider = "nope"
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown generation provider")
	}
}

func TestStartWatcher_ReloadsOnChange(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Watch = true
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Manager.ReloadFromSource(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := startWatcher(ctx, cfg, c, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	if w == nil {
		t.Fatal("expected a watcher for a csv source")
	}
	defer w.Stop()

	if err := os.WriteFile(cfg.Source.Path, []byte("name,city\nAlice,Lisbon\nBob,Paris\nCarol,Rome\n"), 0600); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Manager.Stats().TotalChunks == 3 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("knowledge base was not reloaded: %+v", c.Manager.Stats())
}

func TestStartWatcher_Disabled(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	w, err := startWatcher(context.Background(), cfg, c, zap.NewNop(), false)
	if err != nil || w != nil {
		t.Errorf("watch disabled: got %v, %v", w, err)
	}
}

func TestClientHelpers(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ts := httptest.NewServer(server.NewServer(c.Engine, c.Manager, cfg, zap.NewNop()).Handler())
	defer ts.Close()

	if _, err := chunksViaHTTP(ts.URL, "paris", 5, false, ""); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("chunks before load: got %v", err)
	}

	reload, err := reloadViaHTTP(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !reload.Success || reload.TotalChunks != 2 {
		t.Errorf("reload: %+v", reload)
	}

	stats, err := statsViaHTTP(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if stats.State != "ready" || stats.BuildID != reload.BuildID {
		t.Errorf("stats: %+v", stats)
	}

	useLocal := true
	resp, err := queryViaHTTP(ts.URL, &models.QueryRequest{Prompt: "alice", K: 1, UseLocal: &useLocal})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ContextItems) != 1 {
		t.Errorf("query items: %+v", resp.ContextItems)
	}

	list, err := chunksViaHTTP(ts.URL, "paris", 5, false, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Hits) != 1 || list.Hits[0].RowIndex != 1 {
		t.Errorf("chunks: %+v", list.Hits)
	}

	_, err = chatViaHTTP(ts.URL, &models.ChatRequest{QueryRequest: models.QueryRequest{Prompt: "alice"}})
	if err == nil || !strings.Contains(err.Error(), "501") {
		t.Errorf("chat with generation disabled: got %v", err)
	}

	if _, err := queryViaHTTP(ts.URL, &models.QueryRequest{Prompt: ""}); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("empty prompt: got %v", err)
	}
}

func TestDecodeResponse_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusTeapot)
	}))
	defer ts.Close()
	_, err := statsViaHTTP(ts.URL)
	if err == nil || !strings.Contains(err.Error(), "418: boom") {
		t.Errorf("got %v", err)
	}
}
