package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"creditbot/internal/entities"
	"creditbot/internal/interfaces"
)

const (
	// ToolCost is the flat price of one tool invocation.
	ToolCost = 1

	// confirmWindow bounds how long a stashed destructive action stays valid.
	confirmWindow = 30 * time.Second
)

type stateKind int

const (
	stateIdle stateKind = iota
	stateAwaitingToolInput
	stateAwaitingAdminInput
)

// convState is a tagged variant: exactly one of the payload fields is
// meaningful for a given kind.
type convState struct {
	kind        stateKind
	toolToken   string
	adminAction string
}

type pendingConfirm struct {
	action  string
	payload string
	issued  time.Time
}

// ConversationUsecase holds the per-user conversation state machine and the
// one-shot confirmation payloads. State lives in process memory only; a
// restart drops every pending prompt, which is safe because nothing here is
// a committed mutation.
type ConversationUsecase struct {
	ledger *LedgerUsecase
	tools  interfaces.ToolInvoker
	audit  *AuditUsecase

	mu       sync.Mutex
	states   map[int64]convState
	pendings map[int64]pendingConfirm
	now      func() time.Time
}

func NewConversationUsecase(ledger *LedgerUsecase, tools interfaces.ToolInvoker, audit *AuditUsecase) *ConversationUsecase {
	return &ConversationUsecase{
		ledger:   ledger,
		tools:    tools,
		audit:    audit,
		states:   make(map[int64]convState),
		pendings: make(map[int64]pendingConfirm),
		now:      time.Now,
	}
}

func (uc *ConversationUsecase) state(userID int64) convState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.states[userID]
}

// AwaitToolInput arms the tool prompt for userID.
func (uc *ConversationUsecase) AwaitToolInput(userID int64, token string) {
	uc.mu.Lock()
	uc.states[userID] = convState{kind: stateAwaitingToolInput, toolToken: token}
	uc.mu.Unlock()
}

// AwaitAdminInput arms an admin argument prompt for userID.
func (uc *ConversationUsecase) AwaitAdminInput(userID int64, action string) {
	uc.mu.Lock()
	uc.states[userID] = convState{kind: stateAwaitingAdminInput, adminAction: action}
	uc.mu.Unlock()
}

// Reset returns userID to the idle state.
func (uc *ConversationUsecase) Reset(userID int64) {
	uc.mu.Lock()
	delete(uc.states, userID)
	uc.mu.Unlock()
}

// PendingTool reports the armed tool token, if any.
func (uc *ConversationUsecase) PendingTool(userID int64) (string, bool) {
	st := uc.state(userID)
	return st.toolToken, st.kind == stateAwaitingToolInput
}

// PendingAdminAction reports the armed admin action, if any.
func (uc *ConversationUsecase) PendingAdminAction(userID int64) (string, bool) {
	st := uc.state(userID)
	return st.adminAction, st.kind == stateAwaitingAdminInput
}

// FinishAdminInput clears the pending admin prompt unless the handler
// reported malformed arguments, in which case the prompt stays armed so the
// admin can retry.
func (uc *ConversationUsecase) FinishAdminInput(userID int64, handleErr error) {
	if errors.Is(handleErr, entities.ErrInvalidInput) {
		return
	}
	uc.Reset(userID)
}

// RunTool spends ToolCost and invokes the armed tool with input. The user
// always lands back in the idle state: a failed invocation does not refund
// and does not re-arm the prompt. ErrInsufficientCredits comes back before
// anything is spent or logged.
func (uc *ConversationUsecase) RunTool(ctx context.Context, userID int64, token, input string) (*entities.ToolArtifact, error) {
	defer uc.Reset(userID)

	if err := uc.ledger.CheckAndDeduct(ctx, userID, ToolCost); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, userID, token, truncate(input, 200), ToolCost)

	artifact, err := uc.tools.Invoke(ctx, token, input)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// StashConfirmation arms a one-shot destructive action for adminID. Any
// previously stashed action is overwritten.
func (uc *ConversationUsecase) StashConfirmation(adminID int64, action, payload string) {
	uc.mu.Lock()
	uc.pendings[adminID] = pendingConfirm{action: action, payload: payload, issued: uc.now()}
	uc.mu.Unlock()
}

// TakeConfirmation consumes the stashed payload for action. It fails with
// ErrExpiredConfirmation when nothing is stashed, the action does not match,
// or the validity window has passed. Consumed either way.
func (uc *ConversationUsecase) TakeConfirmation(adminID int64, action string) (string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	p, ok := uc.pendings[adminID]
	delete(uc.pendings, adminID)
	if !ok || p.action != action {
		return "", entities.ErrExpiredConfirmation
	}
	if uc.now().Sub(p.issued) > confirmWindow {
		return "", entities.ErrExpiredConfirmation
	}
	return p.payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
