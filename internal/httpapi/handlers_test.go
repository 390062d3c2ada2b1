package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/callcontrol"
	"softphone-core/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCall scripts the session surface: each operation returns err when set,
// otherwise the canned result.
type stubCall struct {
	state    callcontrol.State
	subState callcontrol.SubState
	contact  *callcontrol.Contact
	conns    []ledger.Connection
	err      error

	lastOp     string
	lastTarget string

	subscribed   int
	unsubscribed int
}

func (s *stubCall) State() callcontrol.State       { return s.state }
func (s *stubCall) SubState() callcontrol.SubState { return s.subState }

func (s *stubCall) ActiveContact() (callcontrol.Contact, bool) {
	if s.contact == nil {
		return callcontrol.Contact{}, false
	}
	return *s.contact, true
}

func (s *stubCall) op(name, target string) error {
	s.lastOp, s.lastTarget = name, target
	return s.err
}

func (s *stubCall) PlaceCall(ctx context.Context, number string) (string, error) {
	return "ct-out-1", s.op("place", number)
}

func (s *stubCall) AcceptContact(ctx context.Context) error  { return s.op("accept", "") }
func (s *stubCall) DeclineContact(ctx context.Context) error { return s.op("decline", "") }
func (s *stubCall) EndContact(ctx context.Context) error     { return s.op("end", "") }

func (s *stubCall) HoldCall(ctx context.Context) (string, error) {
	return callcontrol.MsgHoldOK, s.op("hold", "")
}

func (s *stubCall) ResumeCall(ctx context.Context) (string, error) {
	return callcontrol.MsgResumeOK, s.op("resume", "")
}

func (s *stubCall) TransferToPhoneNumber(ctx context.Context, number string) error {
	return s.op("cold_number", number)
}

func (s *stubCall) TransferToQueue(ctx context.Context, queueID string) error {
	return s.op("cold_queue", queueID)
}

func (s *stubCall) WarmTransferToPhoneNumber(ctx context.Context, number string) (string, error) {
	return "conn-201", s.op("warm_number", number)
}

func (s *stubCall) WarmTransferToQueue(ctx context.Context, queueID string) (string, error) {
	return "conn-201", s.op("warm_queue", queueID)
}

func (s *stubCall) InitiateConference(ctx context.Context, number string) (string, error) {
	return "conn-202", s.op("conference", number)
}

func (s *stubCall) CompleteTransfer(ctx context.Context, connectionID string) error {
	return s.op("complete_transfer", connectionID)
}

func (s *stubCall) MergeConnections(ctx context.Context) error { return s.op("merge", "") }

func (s *stubCall) RemoveFromConference(ctx context.Context, connectionID string) error {
	return s.op("remove", connectionID)
}

func (s *stubCall) GetActiveConnections() ([]ledger.Connection, error) {
	return s.conns, s.err
}

func (s *stubCall) EnterAfterCallWork(ctx context.Context) error { return s.op("enter_acw", "") }

func (s *stubCall) CompleteAfterCallWork(ctx context.Context, dispositionID, notes string) error {
	return s.op("complete_acw", dispositionID)
}

func (s *stubCall) AfterCallWorkRemainingSeconds() int { return -1 }

func (s *stubCall) Mute(ctx context.Context) (bool, error)   { return true, s.err }
func (s *stubCall) Unmute(ctx context.Context) (bool, error) { return false, s.err }

func (s *stubCall) Subscribe(sink callcontrol.EventSink) func() {
	s.subscribed++
	return func() { s.unsubscribed++ }
}

type stubAgent struct {
	state   agentstate.RoutingState
	catalog []agentstate.RoutingState
	err     error
}

func (a *stubAgent) RoutingState() agentstate.RoutingState    { return a.state }
func (a *stubAgent) StateCatalog() []agentstate.RoutingState  { return a.catalog }
func (a *stubAgent) SupportsACW() bool                        { return true }
func (a *stubAgent) EnterACW(ctx context.Context) error       { return nil }
func (a *stubAgent) ExitACWToRoutable(ctx context.Context) error { return nil }
func (a *stubAgent) Mute(ctx context.Context) (bool, error)   { return true, nil }
func (a *stubAgent) Unmute(ctx context.Context) (bool, error) { return false, nil }

func (a *stubAgent) SetRoutingState(ctx context.Context, name string) (agentstate.RoutingState, error) {
	if a.err != nil {
		return agentstate.RoutingState{}, a.err
	}
	a.state = agentstate.RoutingState{Name: name, Category: agentstate.CategoryRoutable}
	return a.state, nil
}

func newTestRouter(call *stubCall, agent *stubAgent) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := Handlers{Call: call, Agent: agent}

	r := gin.New()
	r.GET("/v1/call", h.GetCallState)
	r.GET("/v1/call/events", h.StreamEvents)
	r.GET("/v1/call/connections", h.GetConnections)
	r.POST("/v1/call", h.PlaceCall)
	r.POST("/v1/call/accept", h.AcceptContact)
	r.POST("/v1/call/decline", h.DeclineContact)
	r.POST("/v1/call/end", h.EndContact)
	r.POST("/v1/call/hold", h.HoldCall)
	r.POST("/v1/call/resume", h.ResumeCall)
	r.POST("/v1/call/transfer", h.ColdTransfer)
	r.POST("/v1/call/transfer/warm", h.WarmTransfer)
	r.POST("/v1/call/transfer/complete", h.CompleteTransfer)
	r.POST("/v1/call/conference", h.InitiateConference)
	r.POST("/v1/call/conference/merge", h.MergeConnections)
	r.DELETE("/v1/call/conference/:connection_id", h.RemoveFromConference)
	r.POST("/v1/call/acw", h.EnterAfterCallWork)
	r.POST("/v1/call/acw/complete", h.CompleteAfterCallWork)
	r.POST("/v1/call/mute", h.Mute)
	r.POST("/v1/call/unmute", h.Unmute)
	r.GET("/v1/agent/state", h.GetAgentState)
	r.PUT("/v1/agent/state", h.SetAgentState)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, strings.NewReader("{}"))
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetCallState(t *testing.T) {
	call := &stubCall{
		state:    callcontrol.StateConnected,
		subState: callcontrol.SubStateTransferPending,
		contact:  &callcontrol.Contact{ContactID: "ct-1"},
	}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodGet, "/v1/call", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"Connected"`)
	assert.Contains(t, w.Body.String(), `"sub_state":"TransferPending"`)
	assert.Contains(t, w.Body.String(), `"ct-1"`)
}

func TestHoldCall_ReturnsMessage(t *testing.T) {
	call := &stubCall{state: callcontrol.StateHold}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/hold", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Call successfully put on hold.")
	assert.Equal(t, "hold", call.lastOp)
}

func TestHoldCall_WrongStateIsConflict(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrWrongState}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/hold", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestColdTransfer_NoContactIsNotFound(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrNoContact}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/transfer", `{"target_kind":"queue","target":"billing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No contact instance available")
}

func TestColdTransfer_RoutesByTargetKind(t *testing.T) {
	call := &stubCall{state: callcontrol.StateAfterCallWork}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/transfer", `{"target_kind":"queue","target":"billing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cold_queue", call.lastOp)
	assert.Equal(t, "billing", call.lastTarget)

	w = doJSON(t, r, http.MethodPost, "/v1/call/transfer", `{"target":"+15550001111"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cold_number", call.lastOp)

	w = doJSON(t, r, http.MethodPost, "/v1/call/transfer", `{"target_kind":"carrier_pigeon","target":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWarmTransfer_ReturnsConnectionID(t *testing.T) {
	call := &stubCall{subState: callcontrol.SubStateTransferPending}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/transfer/warm", `{"target":"+15550002222"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conn-201")
	assert.Equal(t, "warm_number", call.lastOp)
}

func TestCompleteTransfer_UnknownConnectionIsNotFound(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrTransferNotFound}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/transfer/complete", `{"connection_id":"conn-999"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMerge_InsufficientParticipantsIsConflict(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrInsufficientParticipants}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/conference/merge", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRemoveFromConference(t *testing.T) {
	call := &stubCall{state: callcontrol.StateConnected}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodDelete, "/v1/call/conference/conn-301", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "remove", call.lastOp)
	assert.Equal(t, "conn-301", call.lastTarget)
}

func TestPlaceCall(t *testing.T) {
	call := &stubCall{state: callcontrol.StateConnected}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call", `{"number":"+15550003333"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ct-out-1")
	assert.Equal(t, "+15550003333", call.lastTarget)
}

func TestPlaceCall_BusyIsConflict(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrWrongState}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call", `{"number":"+15550003333"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOperationInFlightIsConflict(t *testing.T) {
	call := &stubCall{err: callcontrol.ErrOperationInFlight}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/end", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCompleteACW(t *testing.T) {
	call := &stubCall{state: callcontrol.StateIdle}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/acw/complete", `{"disposition_id":"resolved","notes":"done"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "complete_acw", call.lastOp)
	assert.Equal(t, "resolved", call.lastTarget)
}

func TestGetConnections(t *testing.T) {
	call := &stubCall{conns: []ledger.Connection{
		{ConnectionID: "conn-1", Role: ledger.RoleAgent},
		{ConnectionID: "conn-2", Role: ledger.RoleCustomer},
	}}
	r := newTestRouter(call, &stubAgent{})

	w := doJSON(t, r, http.MethodGet, "/v1/call/connections", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conn-1")
	assert.Contains(t, w.Body.String(), "conn-2")
}

func TestSetAgentState(t *testing.T) {
	agent := &stubAgent{}
	r := newTestRouter(&stubCall{}, agent)

	w := doJSON(t, r, http.MethodPut, "/v1/agent/state", `{"name":"Lunch"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lunch", agent.state.Name)
}

func TestSetAgentState_UnknownNameIsBadRequest(t *testing.T) {
	agent := &stubAgent{err: fmt.Errorf("%w: %q", agentstate.ErrInvalidState, "Siesta")}
	r := newTestRouter(&stubCall{}, agent)

	w := doJSON(t, r, http.MethodPut, "/v1/agent/state", `{"name":"Siesta"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMute(t *testing.T) {
	r := newTestRouter(&stubCall{}, &stubAgent{})

	w := doJSON(t, r, http.MethodPost, "/v1/call/mute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"muted":true`)
}

// closeNotifyRecorder gives gin's Stream the CloseNotify it expects from a
// real connection.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return c.closed }

func TestStreamEvents_UnsubscribesWhenClientGone(t *testing.T) {
	call := &stubCall{state: callcontrol.StateIdle}
	r := newTestRouter(call, &stubAgent{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/call/events", nil).WithContext(ctx)
	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	r.ServeHTTP(w, req)

	require.Equal(t, 1, call.subscribed)
	assert.Equal(t, 1, call.unsubscribed, "stream must deregister its sink when the client disconnects")
}
