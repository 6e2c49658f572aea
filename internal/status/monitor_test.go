package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/agentstore"
	"github.com/agentforge/agentforge/internal/model"
)

type fakeTerminal struct {
	exists bool
	pane   string
}

func (f *fakeTerminal) SessionExists(ctx context.Context, name string) bool { return f.exists }
func (f *fakeTerminal) CapturePane(ctx context.Context, name string, lines int) (string, bool) {
	return f.pane, true
}
func (f *fakeTerminal) ResizeSession(ctx context.Context, name string) bool { return true }

type fakeSnapshots struct {
	upserts []model.AgentSnapshot
	events  []model.EventType
}

func (f *fakeSnapshots) UpsertSnapshot(ctx context.Context, snap model.AgentSnapshot) error {
	f.upserts = append(f.upserts, snap)
	return nil
}

func (f *fakeSnapshots) AppendEventJSON(ctx context.Context, agentID, project string, typ model.EventType, payload any) error {
	f.events = append(f.events, typ)
	return nil
}

type richCall struct {
	text    string
	buttons []model.ActionButton
}

type fakeNotifier struct {
	plain []string
	rich  []richCall
}

func (f *fakeNotifier) SendToProjectChannels(ctx context.Context, project, text string) {
	f.plain = append(f.plain, text)
}

func (f *fakeNotifier) SendToProjectChannelsRich(ctx context.Context, project, text string, buttons []model.ActionButton) {
	f.rich = append(f.rich, richCall{text: text, buttons: buttons})
}

type fakeExtractor struct{ text string }

func (f *fakeExtractor) Extract(ctx context.Context, rawTail string) string { return f.text }

func newTestMonitor(term *fakeTerminal, agents *agentstore.Store, snaps *fakeSnapshots, notifier *fakeNotifier, ext Extractor) *Monitor {
	return New(Config{}, term, agents, snaps, nil, notifier, ext, nil, nil, nil)
}

func workingAgent(id string) *model.Agent {
	return &model.Agent{
		ID:      id,
		Project: "alpha",
		Session: model.SessionName("alpha", id),
		Status:  model.StatusWorking,
	}
}

func TestPollAgent_WaitingInputSendsRichNotificationWithButtons(t *testing.T) {
	agents := agentstore.New()
	agents.Put(workingAgent("a1"))
	term := &fakeTerminal{exists: true, pane: "Allow edit? (y/n)"}
	snaps := &fakeSnapshots{}
	notifier := &fakeNotifier{}
	m := newTestMonitor(term, agents, snaps, notifier, nil)

	m.pollOnce(context.Background())

	a := agents.Get("a1")
	assert.Equal(t, model.StatusWaitingInput, a.Status)
	assert.True(t, a.NeedsAttention)

	require.Len(t, notifier.rich, 1)
	assert.Contains(t, notifier.rich[0].text, "Allow edit? (y/n)")
	require.Len(t, notifier.rich[0].buttons, 3)
	assert.Equal(t, "approve", notifier.rich[0].buttons[0].Action)
	assert.Equal(t, "reject", notifier.rich[0].buttons[1].Action)
	assert.Equal(t, "interrupt", notifier.rich[0].buttons[2].Action)
	for _, b := range notifier.rich[0].buttons {
		assert.Equal(t, "a1", b.AgentID)
	}
}

func TestPollAgent_WorkingToIdleRelaysResponseOnce(t *testing.T) {
	agents := agentstore.New()
	agents.Put(workingAgent("a1"))
	term := &fakeTerminal{exists: true, pane: "answered the question\n> "}
	snaps := &fakeSnapshots{}
	notifier := &fakeNotifier{}
	ext := &fakeExtractor{text: "answered the question"}
	m := newTestMonitor(term, agents, snaps, notifier, ext)

	m.pollOnce(context.Background())

	a := agents.Get("a1")
	assert.Equal(t, model.StatusIdle, a.Status)
	assert.Equal(t, "answered the question", a.LastResponse)
	require.Len(t, notifier.plain, 1)
	assert.Equal(t, "answered the question", notifier.plain[0])

	// The agent briefly works again, then idles with the same extract:
	// dedup against last_response suppresses a second broadcast.
	agents.Mutate("a1", func(live *model.Agent) { live.Status = model.StatusWorking })
	term.pane = "answered the question\n>  "
	m.pollOnce(context.Background())

	assert.Equal(t, model.StatusIdle, agents.Get("a1").Status)
	assert.Len(t, notifier.plain, 1, "identical extract must not be re-broadcast")
}

func TestPollAgent_SessionGoneMarksStopped(t *testing.T) {
	agents := agentstore.New()
	a := workingAgent("a1")
	a.Status = model.StatusIdle
	agents.Put(a)
	term := &fakeTerminal{exists: false}
	snaps := &fakeSnapshots{}
	notifier := &fakeNotifier{}
	m := newTestMonitor(term, agents, snaps, notifier, nil)

	m.pollOnce(context.Background())

	got := agents.Get("a1")
	assert.Equal(t, model.StatusStopped, got.Status)
	assert.True(t, got.NeedsAttention)
	assert.False(t, got.Parked)
	require.Len(t, notifier.plain, 1)
	assert.Contains(t, notifier.plain[0], "a1")
}

func TestPollAgent_SessionGoneFromWorkingRelaysResponse(t *testing.T) {
	agents := agentstore.New()
	a := workingAgent("a1")
	a.LastOutput = "final words"
	agents.Put(a)
	term := &fakeTerminal{exists: false}
	snaps := &fakeSnapshots{}
	notifier := &fakeNotifier{}
	ext := &fakeExtractor{text: "final words"}
	m := newTestMonitor(term, agents, snaps, notifier, ext)

	m.pollOnce(context.Background())

	assert.Equal(t, model.StatusStopped, agents.Get("a1").Status)
	require.Len(t, notifier.plain, 1)
	assert.Equal(t, "final words", notifier.plain[0])
}

func TestPollOnce_SkipsStoppedAgents(t *testing.T) {
	agents := agentstore.New()
	a := workingAgent("a1")
	a.Status = model.StatusStopped
	agents.Put(a)
	snaps := &fakeSnapshots{}
	m := newTestMonitor(&fakeTerminal{exists: true, pane: "x"}, agents, snaps, &fakeNotifier{}, nil)

	m.pollOnce(context.Background())

	assert.Empty(t, snaps.upserts)
}

func TestPollAgent_EveryPollPersistsSnapshot(t *testing.T) {
	agents := agentstore.New()
	agents.Put(workingAgent("a1"))
	snaps := &fakeSnapshots{}
	// Unchanged output with no prompt: WORKING -> ... stays put only if
	// output matches previous; here previous is empty so this is a change.
	m := newTestMonitor(&fakeTerminal{exists: true, pane: "building"}, agents, snaps, &fakeNotifier{}, nil)

	m.pollOnce(context.Background())
	m.pollOnce(context.Background())

	assert.Len(t, snaps.upserts, 2)
}
