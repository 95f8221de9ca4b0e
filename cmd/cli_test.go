package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/oneiro/internal/adapters/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDreamStartWithoutAssistantUsesBuiltInQuestions(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "dream", "start", "--user", "user-1", "I", "was", "lost", "in", "a", "library")
	require.NoError(t, err)
	assert.Contains(t, stdout, "I was lost in a library")
	assert.Contains(t, stdout, "round 1/3")
	assert.Contains(t, stdout, "offline")
	assert.FileExists(t, filepath.Join(home, ".oneiro", "dreams.toml"))
}

func TestDreamStartRequiresUserFlag(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "dream", "start", "a dream")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"user\" not set")
}

func TestDreamAnswerUnknownDream(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "dream", "answer", "--dream", "missing", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dream not found")
}

func TestDreamFlowAcrossInvocations(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "dream", "start", "--user", "user-1", "--json", "a staircase that never ends")
	require.NoError(t, err)
	started := decodeSession(t, stdout)
	assert.Equal(t, 1, started.Round)
	assert.True(t, started.Degraded)

	var last httpapi.SessionResponse
	for _, answer := range []string{"tired", "my old school", "yes, every week"} {
		stdout, _, err = executeCLI(t, home, "dream", "answer", "--dream", started.ID, "--json", answer)
		require.NoError(t, err)
		last = decodeSession(t, stdout)
	}
	assert.True(t, last.IsComplete)
	assert.Equal(t, "completed", last.Status)
	assert.NotEmpty(t, last.Interpretation)

	_, _, err = executeCLI(t, home, "dream", "answer", "--dream", started.ID, "one more")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session state")

	stdout, _, err = executeCLI(t, home, "dream", "show", "--dream", started.ID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "interpretation:")
	assert.Contains(t, stdout, "> my old school")

	stdout, _, err = executeCLI(t, home, "dream", "list", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dreams: 1")
	assert.Contains(t, stdout, "[completed]")

	stdout, _, err = executeCLI(t, home, "dream", "list", "--user", "someone-else", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, stdout)
}

func TestDreamInterviewReadsAnswersFromStdin(t *testing.T) {
	home := t.TempDir()
	input := strings.Join([]string{"a whale in my kitchen", "amused", "my sister", "I moved last month"}, "\n") + "\n"

	stdout, _, err := executeCLIWithInput(t, home, input, "dream", "interview", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Describe your dream:")
	assert.Contains(t, stdout, "built-in set")
	assert.Contains(t, stdout, "interpretation:")
	assert.Contains(t, stdout, "> I moved last month")
}

func TestDreamInterviewStopsAtEndOfInput(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLIWithInput(t, home, "a whale in my kitchen\namused\n", "dream", "interview", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Continue with: oneiro dream answer --dream")
	assert.NotContains(t, stdout, "interpretation:")
}

func TestProfileSetThenShow(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "profile", "set", "--user", "user-1", "--age", "34", "--has-pets")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "profile", "set", "--user", "user-1", "--work-status", "employed")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "profile", "show", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "age: 34")
	assert.Contains(t, stdout, "pets: true")
	assert.Contains(t, stdout, "kids: false")
	assert.Contains(t, stdout, "work: employed")
	assert.Contains(t, stdout, "gender: n/a")
}

func TestProfileShowUnknownUser(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "profile", "show", "--user", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile not found")
}

func TestAuthSetKeyThenDreamUsesAssistant(t *testing.T) {
	api := newFakeAssistantAPI(t, "What colour was the sky?", "Who was with you?", "How did it end?", "It speaks of a change you are ready for.")
	home := t.TempDir()
	t.Setenv("ONEIRO_ASSISTANT_BASE_URL", api.URL)
	t.Setenv("ONEIRO_ASSISTANT_ASSISTANT_ID", "asst_test")

	stdout, _, err := executeCLIWithInput(t, home, "sk-test-123\n", "auth", "set-key")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stored API key at openai/api_key")

	stdout, _, err = executeCLI(t, home, "dream", "start", "--user", "user-1", "--json", "a red sky over the sea")
	require.NoError(t, err)
	started := decodeSession(t, stdout)
	assert.False(t, started.Degraded)
	assert.Equal(t, "What colour was the sky?", started.Messages[1].Content)

	stdout, _, err = executeCLI(t, home, "dream", "answer", "--dream", started.ID, "--json", "deep red")
	require.NoError(t, err)
	next := decodeSession(t, stdout)
	assert.Equal(t, 2, next.Round)
	assert.Equal(t, "Who was with you?", next.Messages[len(next.Messages)-1].Content)

	assert.Equal(t, "Bearer sk-test-123", api.authorization())
	assert.Equal(t, 1, api.threadsOpened())
}

func TestUnknownCommand(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home string, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("ONEIRO_SECRETS_BACKEND", "file")

	root, closeApp := newRootCmd()
	defer closeApp()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeSession(t *testing.T, raw string) httpapi.SessionResponse {
	t.Helper()

	var out httpapi.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	return out
}

// fakeAssistantAPI serves the Assistants endpoints the client uses. Run n
// completes with replies[n-1].
type fakeAssistantAPI struct {
	*httptest.Server

	mu      sync.Mutex
	replies []string
	threads int
	runs    int
	auth    string
}

func newFakeAssistantAPI(t *testing.T, replies ...string) *fakeAssistantAPI {
	t.Helper()

	api := &fakeAssistantAPI{replies: replies}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAssistantAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.auth = r.Header.Get("Authorization")
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/threads":
		a.threads++
		writeBody(w, map[string]any{"id": "thread_1"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/messages"):
		writeBody(w, map[string]any{"id": "msg_user"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/runs"):
		a.runs++
		writeBody(w, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "queued"})
	case r.Method == http.MethodGet && strings.Contains(path, "/runs/"):
		writeBody(w, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "completed"})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/messages"):
		reply := ""
		if a.runs > 0 && a.runs <= len(a.replies) {
			reply = a.replies[a.runs-1]
		}
		writeBody(w, map[string]any{"data": []any{
			map[string]any{
				"id":   "msg_assistant",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "text", "text": map[string]any{"value": reply}},
				},
			},
		}})
	default:
		http.NotFound(w, r)
	}
}

func (a *fakeAssistantAPI) authorization() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth
}

func (a *fakeAssistantAPI) threadsOpened() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.threads
}

func writeBody(w http.ResponseWriter, body any) {
	_ = json.NewEncoder(w).Encode(body)
}
