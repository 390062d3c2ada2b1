package httpapi

import (
	"context"
	"net/http"
	"time"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/auth"
	"softphone-core/internal/callcontrol"
	"softphone-core/internal/calllog"
	"softphone-core/internal/ledger"
	"softphone-core/internal/rbac"

	"github.com/gin-gonic/gin"
)

// CallControl is the slice of the session surface the HTTP layer drives.
// *callcontrol.Session satisfies it; tests inject a stub.
type CallControl interface {
	State() callcontrol.State
	SubState() callcontrol.SubState
	ActiveContact() (callcontrol.Contact, bool)

	PlaceCall(ctx context.Context, number string) (string, error)
	AcceptContact(ctx context.Context) error
	DeclineContact(ctx context.Context) error
	EndContact(ctx context.Context) error

	HoldCall(ctx context.Context) (string, error)
	ResumeCall(ctx context.Context) (string, error)

	TransferToPhoneNumber(ctx context.Context, number string) error
	TransferToQueue(ctx context.Context, queueID string) error
	WarmTransferToPhoneNumber(ctx context.Context, number string) (string, error)
	WarmTransferToQueue(ctx context.Context, queueID string) (string, error)
	InitiateConference(ctx context.Context, number string) (string, error)
	CompleteTransfer(ctx context.Context, connectionID string) error
	MergeConnections(ctx context.Context) error
	RemoveFromConference(ctx context.Context, connectionID string) error

	GetActiveConnections() ([]ledger.Connection, error)

	EnterAfterCallWork(ctx context.Context) error
	CompleteAfterCallWork(ctx context.Context, dispositionID, notes string) error
	AfterCallWorkRemainingSeconds() int

	Mute(ctx context.Context) (bool, error)
	Unmute(ctx context.Context) (bool, error)

	Subscribe(sink callcontrol.EventSink) func()
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Call    CallControl
	Agent   agentstate.Adapter
	CallLog *calllog.Service
}

// --- Auth ---

type loginRequest struct {
	AgentID     string `json:"agent_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AgentID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.AgentID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Call state ---

func (h Handlers) GetCallState(c *gin.Context) {
	resp := gin.H{
		"state":         h.Call.State(),
		"sub_state":     h.Call.SubState(),
		"acw_remaining": h.Call.AfterCallWorkRemainingSeconds(),
	}
	if contact, ok := h.Call.ActiveContact(); ok {
		resp["contact"] = contact
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handlers) GetConnections(c *gin.Context) {
	conns, err := h.Call.GetActiveConnections()
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": conns})
}

// --- Call lifecycle ---

type placeCallRequest struct {
	Number string `json:"number"`
}

func (h Handlers) PlaceCall(c *gin.Context) {
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	contactID, err := h.Call.PlaceCall(c.Request.Context(), req.Number)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact_id": contactID, "state": h.Call.State()})
}

func (h Handlers) AcceptContact(c *gin.Context) {
	h.simpleOp(c, h.Call.AcceptContact)
}

func (h Handlers) DeclineContact(c *gin.Context) {
	h.simpleOp(c, h.Call.DeclineContact)
}

func (h Handlers) EndContact(c *gin.Context) {
	h.simpleOp(c, h.Call.EndContact)
}

func (h Handlers) simpleOp(c *gin.Context, op func(context.Context) error) {
	if err := op(c.Request.Context()); err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Call.State(), "sub_state": h.Call.SubState()})
}

func (h Handlers) HoldCall(c *gin.Context) {
	msg, err := h.Call.HoldCall(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "state": h.Call.State()})
}

func (h Handlers) ResumeCall(c *gin.Context) {
	msg, err := h.Call.ResumeCall(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "state": h.Call.State()})
}

// --- Transfers and conferencing ---

type transferRequest struct {
	// TargetKind accepts: phone_number, queue.
	TargetKind string `json:"target_kind"`
	Target     string `json:"target"`
}

func (h Handlers) ColdTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var err error
	switch req.TargetKind {
	case "queue":
		err = h.Call.TransferToQueue(c.Request.Context(), req.Target)
	case "phone_number", "":
		err = h.Call.TransferToPhoneNumber(c.Request.Context(), req.Target)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "target_kind must be phone_number or queue"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Call.State()})
}

func (h Handlers) WarmTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var connectionID string
	var err error
	switch req.TargetKind {
	case "queue":
		connectionID, err = h.Call.WarmTransferToQueue(c.Request.Context(), req.Target)
	case "phone_number", "":
		connectionID, err = h.Call.WarmTransferToPhoneNumber(c.Request.Context(), req.Target)
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "target_kind must be phone_number or queue"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection_id": connectionID, "sub_state": h.Call.SubState()})
}

func (h Handlers) InitiateConference(c *gin.Context) {
	var req placeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	connectionID, err := h.Call.InitiateConference(c.Request.Context(), req.Number)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection_id": connectionID, "sub_state": h.Call.SubState()})
}

type completeTransferRequest struct {
	// ConnectionID is optional; empty targets the most recent pending
	// transfer.
	ConnectionID string `json:"connection_id"`
}

func (h Handlers) CompleteTransfer(c *gin.Context) {
	var req completeTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Call.CompleteTransfer(c.Request.Context(), req.ConnectionID); err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Call.State()})
}

func (h Handlers) MergeConnections(c *gin.Context) {
	h.simpleOp(c, h.Call.MergeConnections)
}

func (h Handlers) RemoveFromConference(c *gin.Context) {
	connectionID := c.Param("connection_id")
	if connectionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "connection_id required"})
		return
	}
	if err := h.Call.RemoveFromConference(c.Request.Context(), connectionID); err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Call.State(), "sub_state": h.Call.SubState()})
}

// --- After-call work ---

func (h Handlers) EnterAfterCallWork(c *gin.Context) {
	h.simpleOp(c, h.Call.EnterAfterCallWork)
}

type completeACWRequest struct {
	DispositionID string `json:"disposition_id"`
	Notes         string `json:"notes"`
}

func (h Handlers) CompleteAfterCallWork(c *gin.Context) {
	var req completeACWRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Call.CompleteAfterCallWork(c.Request.Context(), req.DispositionID, req.Notes); err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.Call.State()})
}

// --- Mute ---

func (h Handlers) Mute(c *gin.Context) {
	muted, err := h.Call.Mute(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}

func (h Handlers) Unmute(c *gin.Context) {
	muted, err := h.Call.Unmute(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}

// --- Agent state ---

func (h Handlers) GetAgentState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":   h.Agent.RoutingState(),
		"catalog": h.Agent.StateCatalog(),
	})
}

type setStateRequest struct {
	Name string `json:"name"`
}

func (h Handlers) SetAgentState(c *gin.Context) {
	var req setStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	st, err := h.Agent.SetRoutingState(c.Request.Context(), req.Name)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

// --- Call history ---

func (h Handlers) GetDispositions(c *gin.Context) {
	if h.CallLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispositions": h.CallLog.Dispositions()})
}

func (h Handlers) GetCallHistory(c *gin.Context) {
	if h.CallLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log not configured"})
		return
	}
	records, err := h.CallLog.History(c.Request.Context(), 50)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
