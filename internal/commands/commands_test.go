package foundrychat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/cliexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	phiID    = "Phi-3.5-mini-instruct-generic-cpu"
	qwenID   = "qwen2.5-0.5b-instruct-generic-cpu"
	catalogJ = `[
		{"name": "` + qwenID + `", "displayName": "qwen2.5-0.5b", "modelType": "ONNX text generation", "fileSize": "512 MB", "parameterSize": "0.5B", "providerType": "AzureFoundry", "runtime": {"deviceType": "CPU"}},
		{"name": "` + phiID + `", "displayName": "Phi-3.5-mini", "modelType": "ONNX text generation", "fileSize": "2.13 GB", "parameterSize": "3.8B", "publisher": "Microsoft"},
		{"name": "whisper-small", "displayName": "whisper-small", "modelType": "automatic-speech-recognition", "fileSize": "300 MB"}
	]`
	activeJ = `{"data": [{"id": "` + phiID + `", "maxInputTokens": 4096, "maxOutputTokens": 1024, "object": "model", "owned_by": "Microsoft"}]}`
)

// fakeService is a canned Foundry Local service.
type fakeService struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	reply    string
	finish   string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{bodies: map[string]string{}, reply: "Hello from the model.", finish: "stop"}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /foundry/list", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = io.WriteString(w, catalogJ)
	})
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = io.WriteString(w, activeJ)
	})
	mux.HandleFunc("GET /openai/status", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = io.WriteString(w, `{"endpoints": ["http://127.0.0.1:5273"], "modelDirPath": "/models", "isAutoRegistrationResolved": true, "autoRegistrationStatus": "Succeeded"}`)
	})
	mux.HandleFunc("POST /openai/download", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = io.WriteString(w, "Total 25% Downloading\nTotal 100% Downloading\n")
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		reply, finish := f.reply, f.finish
		f.mu.Unlock()
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}, "finish_reason": finish}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("DELETE /v1/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(http.StatusOK)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeService) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
}

func (f *fakeService) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func (f *fakeService) seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (f *fakeService) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

// runAgainst executes args with --baseUrl pointing at svc.
func runAgainst(t *testing.T, svc *fakeService, args ...string) (string, error) {
	t.Helper()
	useConfig(t, `{"favorites": ["phi-3.5"]}`)
	return execute(t, append([]string{"--baseUrl", svc.URL}, args...)...)
}

func resetLocalFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, c := range []struct {
			flags interface {
				Set(string, string) error
			}
			name, value string
		}{
			{modelsListCmd.Flags(), "category", ""},
			{modelsListCmd.Flags(), "cached", "false"},
			{modelsListCmd.Flags(), "favorites", "false"},
			{chatCmd.Flags(), "model", ""},
			{chatCmd.Flags(), "file", ""},
			{chatCmd.Flags(), "prompt", ""},
			{chatCmd.Flags(), "auto-continue", "0"},
			{cliServeCmd.Flags(), "port", "5272"},
			{cliCachedCmd.Flags(), "parser", "fixed"},
			{modelsFavoriteCmd.Flags(), "save", "false"},
		} {
			_ = c.flags.Set(c.name, c.value)
		}
	})
}

func TestStatusCommand(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "status")
	require.NoError(t, err)
	assert.Contains(t, out, svc.URL)
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "/models")
	assert.Contains(t, out, "Succeeded")
}

func TestStatusCommandJSON(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "-o", "json", "status")
	require.NoError(t, err)

	var got struct {
		BaseURL string `json:"baseUrl"`
		Status  struct {
			ModelDirPath string `json:"modelDirPath"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, svc.URL, got.BaseURL)
	assert.Equal(t, "/models", got.Status.ModelDirPath)
}

func TestStatusCommandUnreachable(t *testing.T) {
	svc := newFakeService(t)
	url := svc.URL
	svc.Close()

	useConfig(t, "{}")
	out, err := execute(t, "--baseUrl", url, "status")
	require.Error(t, err)
	assert.Contains(t, out, "unreachable")
}

func TestModelsListCommand(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[1], phiID, "cached models come first")
	assert.Contains(t, lines[1], "★")
	assert.Contains(t, out, "Found 3 available models, 1 cached")
	assert.Contains(t, out, "2.13GB")
}

func TestModelsListCommandFilters(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "-o", "json", "models", "list", "--category", "Speech")
	require.NoError(t, err)

	var rows []modelRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "whisper-small", rows[0].Name)

	out, err = runAgainst(t, svc, "-o", "json", "models", "list", "--category=", "--cached")
	require.NoError(t, err)
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, phiID, rows[0].Name)
	assert.True(t, rows[0].Cached)
	assert.True(t, rows[0].Favorite)
}

func TestModelsActiveAndInfo(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "active")
	require.NoError(t, err)
	assert.Contains(t, out, phiID)
	assert.Contains(t, out, "4096")

	out, err = runAgainst(t, svc, "models", "info", phiID)
	require.NoError(t, err)
	assert.Contains(t, out, "4096")
	assert.Contains(t, out, "1024")

	_, err = runAgainst(t, svc, "models", "info", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}

func TestModelsShowCommand(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "show", phiID)
	require.NoError(t, err)
	assert.Contains(t, out, "Phi-3.5-mini")
	assert.Contains(t, out, "Microsoft")
	assert.Contains(t, out, "Text Generation")

	_, err = runAgainst(t, svc, "models", "show", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the catalog")
}

func TestModelsShowReusesDescriptorCache(t *testing.T) {
	svc := newFakeService(t)

	_, err := runAgainst(t, svc, "models", "show", phiID)
	require.NoError(t, err)
	out, err := execute(t, "--baseUrl", svc.URL, "models", "show", phiID)
	require.NoError(t, err)
	assert.Contains(t, out, "Phi-3.5-mini")
	assert.Equal(t, 1, svc.count("GET /foundry/list"))
	assert.Equal(t, 3, descriptorCache.Len())
}

func TestModelsFavoriteCommand(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "favorite", qwenID, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "added to favorites: "+qwenID)
	assert.Contains(t, out, "Favorites: "+phiID+", "+qwenID)

	data, err := os.ReadFile(currentConfig.ConfigPath)
	require.NoError(t, err)
	var saved struct {
		Favorites []string `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, []string{phiID, qwenID}, saved.Favorites)

	out, err = execute(t, "--baseUrl", svc.URL, "-o", "json", "models", "favorite", phiID)
	require.NoError(t, err)
	var got struct {
		Favorite  bool     `json:"favorite"`
		Favorites []string `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Favorite)
	assert.Equal(t, []string{qwenID}, got.Favorites)
	cached, ok := descriptorCache.Get(phiID)
	require.True(t, ok)
	assert.False(t, cached.IsFavorite)

	_, err = execute(t, "--baseUrl", svc.URL, "-o", "table", "models", "favorite", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the catalog")
}

func TestModelsDownloadCommand(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "download", qwenID)
	require.NoError(t, err)
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "download complete")

	var envelope struct {
		IgnorePipeReport bool `json:"ignorePipeReport"`
		Model            struct {
			Name         string `json:"name"`
			ProviderType string `json:"providerType"`
		} `json:"model"`
	}
	require.NoError(t, json.Unmarshal([]byte(svc.body("POST /openai/download")), &envelope))
	assert.Equal(t, qwenID, envelope.Model.Name)
	assert.Equal(t, "AzureFoundryLocal", envelope.Model.ProviderType)
	assert.True(t, envelope.IgnorePipeReport)

	out, err = runAgainst(t, svc, "models", "download", phiID)
	require.NoError(t, err)
	assert.Contains(t, out, "already downloaded")
}

func TestModelsDeleteCommand(t *testing.T) {
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "models", "delete", phiID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	assert.True(t, svc.seen("DELETE /v1/models/"+phiID))
}

func TestChatPromptCommand(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)

	out, err := runAgainst(t, svc, "--markdown=false", "chat", "--prompt", "Hi there")
	require.NoError(t, err)
	assert.Contains(t, out, "You: Hi there")
	assert.Contains(t, out, "Hello from the model.")

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(svc.body("POST /v1/chat/completions")), &req))
	assert.Equal(t, phiID, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestChatPromptAutoContinue(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)
	svc.finish = "length"

	out, err := runAgainst(t, svc, "--markdown=false", "chat", "--model", phiID, "--prompt", "Tell me a story", "--auto-continue", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello from the model.")
	assert.Contains(t, out, "truncated")

	count := 0
	svc.mu.Lock()
	for _, r := range svc.requests {
		if r == "POST /v1/chat/completions" {
			count++
		}
	}
	svc.mu.Unlock()
	assert.Equal(t, 3, count)
}

func TestChatUnknownModel(t *testing.T) {
	resetLocalFlags(t)
	svc := newFakeService(t)

	_, err := runAgainst(t, svc, "chat", "--model", "missing", "--prompt", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}

// scriptedRunner answers foundry invocations from a table keyed by the
// joined arguments.
type scriptedRunner struct {
	outputs map[string]string
	calls   []string
}

func (s *scriptedRunner) Run(_ context.Context, _ string, args []string, onLine func(cliexec.Stream, string)) (int, error) {
	key := strings.Join(args, " ")
	s.calls = append(s.calls, key)
	out, ok := s.outputs[key]
	if !ok {
		onLine(cliexec.Stderr, "unknown command")
		return 1, nil
	}
	for _, line := range strings.Split(out, "\n") {
		onLine(cliexec.Stdout, line)
	}
	return 0, nil
}

// withRunner makes newServices build executors backed by r.
func withRunner(t *testing.T, r cliexec.Runner) {
	t.Helper()
	prev := newServices
	newServices = func(cfg *appconfig.Config) (*services, error) {
		svc, err := prev(cfg)
		if err != nil {
			return nil, err
		}
		exec, err := cliexec.New(cfg.ServiceBinary, cliexec.WithRunner(r))
		if err != nil {
			return nil, err
		}
		svc.cli = exec
		return svc, nil
	}
	t.Cleanup(func() { newServices = prev })
}

func TestCLICommands(t *testing.T) {
	resetLocalFlags(t)
	runner := &scriptedRunner{outputs: map[string]string{
		"--version":                     "0.7.117\n",
		"model download phi-4":          "Downloading 40%\nDownloading 100%\n",
		"model delete phi-4":            "Deleted\n",
		"model run phi-4 --prompt hi":   "Hi! How can I help?\n",
		"service status":                "Service is running on http://127.0.0.1:5273/openai/status\n",
		"model serve phi-4 --port 6000": "Serving phi-4\n",
		"cache list --json":             "[]\n",
		"cache list":                    `[{"alias": "phi-4", "modelId": "Phi-4-generic-cpu"}]`,
	}}
	withRunner(t, runner)
	useConfig(t, "{}")

	out, err := execute(t, "cli", "version")
	require.NoError(t, err)
	assert.Equal(t, "0.7.117\n", out)

	out, err = execute(t, "cli", "download", "phi-4")
	require.NoError(t, err)
	assert.Contains(t, out, "40.0%")
	assert.Contains(t, out, "download complete")

	out, err = execute(t, "cli", "delete", "phi-4")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted phi-4")

	out, err = execute(t, "cli", "run", "phi-4", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "How can I help?")

	out, err = execute(t, "cli", "service-status")
	require.NoError(t, err)
	assert.Contains(t, out, "http://127.0.0.1:5273")

	out, err = execute(t, "cli", "serve", "phi-4", "--port", "6000")
	require.NoError(t, err)
	assert.Contains(t, out, "Serving phi-4")

	out, err = execute(t, "cli", "exec", "cache list --json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = execute(t, "-o", "json", "cli", "cached", "--parser", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"modelId": "Phi-4-generic-cpu"`)

	_, err = execute(t, "-o", "table", "cli", "exec", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestCLIListCommand(t *testing.T) {
	row := func(alias, device, task, size, license, id string) string {
		return fmt.Sprintf("%-31s%-11s%-15s%-13s%-13s%s", alias, device, task, size, license, id)
	}
	runner := &scriptedRunner{outputs: map[string]string{
		"model list": strings.Join([]string{
			row("Alias", "Device", "Task", "File Size", "License", "Model ID"),
			row("phi-4", "CPU", "chat", "8.37 GB", "MIT", "Phi-4-generic-cpu"),
		}, "\n"),
	}}
	withRunner(t, runner)
	useConfig(t, "{}")

	out, err := execute(t, "-o", "json", "cli", "list")
	require.NoError(t, err)

	var models []cliexec.Model
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.NotEmpty(t, models)
	last := models[len(models)-1]
	assert.Equal(t, "phi-4", last.Alias)
	assert.Equal(t, "Phi-4-generic-cpu", last.ModelID)
}

func TestStatusCommandExportsTraces(t *testing.T) {
	svc := newFakeService(t)

	var mu sync.Mutex
	var exported []string
	otlp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		exported = append(exported, r.Method+" "+r.URL.Path)
		mu.Unlock()
	}))
	defer otlp.Close()

	out, err := runAgainst(t, svc, "--tracesEndpoint", otlp.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "online")
	assert.Equal(t, otlp.URL, currentConfig.TracesEndpoint)

	flushTelemetry()
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, exported, "POST /v1/traces")
}

func TestInvalidTracesEndpointRejected(t *testing.T) {
	useConfig(t, `{"tracesEndpoint": "collector"}`)

	_, err := execute(t, "show", "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid tracesEndpoint "collector"`)
}
