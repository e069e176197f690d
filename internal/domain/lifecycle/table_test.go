package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		from       Status
		to         Status
		action     string
		role       Role
		conditions map[string]bool
		wantCode   string
	}{
		{
			name:       "buyer pays with completed payment",
			from:       StatusInitiated,
			to:         StatusPaid,
			action:     "pay",
			role:       RoleBuyer,
			conditions: map[string]bool{CondPaymentCompleted: true},
		},
		{
			name:     "no edge between states",
			from:     StatusPaid,
			to:       StatusShipped,
			action:   "register_shipment",
			role:     RoleSeller,
			wantCode: "INVALID_TRANSITION",
		},
		{
			name:     "edge exists but action name differs",
			from:     StatusInitiated,
			to:       StatusPaid,
			action:   "force_pay",
			role:     RoleBuyer,
			wantCode: "INVALID_TRANSITION",
		},
		{
			name:       "seller may not pay",
			from:       StatusInitiated,
			to:         StatusPaid,
			action:     "pay",
			role:       RoleSeller,
			conditions: map[string]bool{CondPaymentCompleted: true},
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:     "missing condition",
			from:     StatusInitiated,
			to:       StatusPaid,
			action:   "pay",
			role:     RoleBuyer,
			wantCode: "CONDITION_NOT_MET",
		},
		{
			name:       "condition present but false",
			from:       StatusInitiated,
			to:         StatusPaid,
			action:     "pay",
			role:       RoleBuyer,
			conditions: map[string]bool{CondPaymentCompleted: false},
			wantCode:   "CONDITION_NOT_MET",
		},
		{
			name:     "terminal state rejects everything",
			from:     StatusBuyerConfirmed,
			to:       StatusDispute,
			action:   "open_dispute",
			role:     RoleBuyer,
			wantCode: "INVALID_TRANSITION",
		},
		{
			name:     "cancelled is terminal",
			from:     StatusCancelled,
			to:       StatusInitiated,
			action:   "pay",
			role:     RoleBuyer,
			wantCode: "INVALID_TRANSITION",
		},
		{
			name:       "dispute self loop for evidence",
			from:       StatusDispute,
			to:         StatusDispute,
			action:     "upload_evidence",
			role:       RoleSeller,
			conditions: nil,
		},
		{
			name:       "admin resolves dispute to refund",
			from:       StatusDispute,
			to:         StatusRefundPending,
			action:     "resolve_dispute",
			role:       RoleAdmin,
			conditions: map[string]bool{CondAdminResolution: true},
		},
		{
			name:       "buyer may not resolve dispute",
			from:       StatusDispute,
			to:         StatusRefundPending,
			action:     "resolve_dispute",
			role:       RoleBuyer,
			conditions: map[string]bool{CondAdminResolution: true},
			wantCode:   "UNAUTHORIZED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.from, tt.to, tt.action, tt.role, tt.conditions)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantCode), "want %s, got %v", tt.wantCode, err)
		})
	}
}

func TestAllowedActions(t *testing.T) {
	assert.ElementsMatch(t, []string{"pay", "cancel"}, AllowedActions(StatusInitiated, RoleBuyer))
	assert.ElementsMatch(t, []string{"cancel"}, AllowedActions(StatusInitiated, RoleSeller))

	// auto_cancel is scheduler-only and must not be offered.
	assert.ElementsMatch(t, []string{"approve_cancel", "reject_cancel"}, AllowedActions(StatusCancelRequested, RoleSeller))
	assert.Empty(t, AllowedActions(StatusCancelRequested, RoleBuyer))

	// resolve_dispute has two target states but is offered once.
	assert.ElementsMatch(t, []string{"resolve_dispute"}, AllowedActions(StatusDispute, RoleAdmin))

	assert.Empty(t, AllowedActions(StatusBuyerConfirmed, RoleBuyer))
	assert.Empty(t, AllowedActions(StatusRefunded, RoleSeller))
}

func TestAutoEdges(t *testing.T) {
	edges := AutoEdges()
	require.Len(t, edges, 2)

	byAction := make(map[string]Edge, len(edges))
	for _, e := range edges {
		byAction[e.Action] = e
	}

	confirm, ok := byAction["auto_confirm"]
	require.True(t, ok)
	assert.Equal(t, StatusDelivered, confirm.From)
	assert.Equal(t, StatusBuyerConfirmed, confirm.To)
	assert.Equal(t, 72*time.Hour, confirm.Timeout)

	cancel, ok := byAction["auto_cancel"]
	require.True(t, ok)
	assert.Equal(t, StatusCancelRequested, cancel.From)
	assert.Equal(t, StatusCancelled, cancel.To)
	assert.Equal(t, 24*time.Hour, cancel.Timeout)
	assert.Equal(t, []string{CondCancelApproved}, cancel.Conditions)
}

func TestTableConsistency(t *testing.T) {
	for _, e := range Edges() {
		assert.True(t, Valid(e.From), "unknown from status %s", e.From)
		assert.True(t, Valid(e.To), "unknown to status %s", e.To)
		assert.NotEmpty(t, e.Roles, "edge %s has no roles", e.Action)
		assert.False(t, Terminal(e.From), "terminal status %s has outgoing edge %s", e.From, e.Action)
		if e.Auto {
			assert.Greater(t, e.Timeout, time.Duration(0), "auto edge %s has no timeout", e.Action)
			assert.Equal(t, []Role{RoleSystem}, e.Roles, "auto edge %s must be system-only", e.Action)
		}
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusBuyerConfirmed))
	assert.True(t, Terminal(StatusRefunded))
	assert.True(t, Terminal(StatusCancelled))
	assert.False(t, Terminal(StatusDispute))
	assert.False(t, Terminal(StatusInitiated))
}
