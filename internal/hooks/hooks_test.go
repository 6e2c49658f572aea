package hooks

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/model"
)

func newTestEngine(t *testing.T, agents *agentstore.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(agents, nil).Routes(r)
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/hooks/event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvent_SubagentStartIncrementsCount(t *testing.T) {
	agents := agentstore.New()
	agents.Put(&model.Agent{ID: "abc123", SubAgentCount: 0})
	r := newTestEngine(t, agents)

	rec := post(r, `{"agent_id":"abc123","hook_event":"SubagentStart"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, agents.Get("abc123").SubAgentCount)
}

func TestHandleEvent_SubagentStopFlooredAtZero(t *testing.T) {
	agents := agentstore.New()
	agents.Put(&model.Agent{ID: "abc123", SubAgentCount: 0})
	r := newTestEngine(t, agents)

	rec := post(r, `{"agent_id":"abc123","hook_event":"SubagentStop"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, agents.Get("abc123").SubAgentCount)
}

func TestHandleEvent_UnknownAgentIsIgnoredWith200(t *testing.T) {
	agents := agentstore.New()
	r := newTestEngine(t, agents)

	rec := post(r, `{"agent_id":"does-not-exist","hook_event":"SubagentStart"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())
}

func TestHandleEvent_MalformedBodyReturns400(t *testing.T) {
	agents := agentstore.New()
	r := newTestEngine(t, agents)

	rec := post(r, `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
