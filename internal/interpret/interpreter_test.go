package interpret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinewire/internal/domain"
)

func ctxWith(orders ...OrderRef) Context {
	return Context{Orders: orders}
}

func TestInterpretChangeStatusByOrderNumber(t *testing.T) {
	in := Interpret("set order 1001 to preparing", ctxWith(
		OrderRef{OrderNumber: "1001", TableNumber: "3"},
	))

	require.NotNil(t, in.ChangeStatus)
	assert.Equal(t, "1001", in.ChangeStatus.OrderRef)
	assert.Equal(t, domain.StatusPreparing, in.ChangeStatus.TargetStatus)
}

func TestInterpretCreateOrderForTable(t *testing.T) {
	in := Interpret("create order for table 5", Context{})

	require.NotNil(t, in.Create)
	assert.Equal(t, "5", in.Create.Table)
}

func TestInterpretNoReferenceNeverGuesses(t *testing.T) {
	in := Interpret("mark it ready", ctxWith(
		OrderRef{OrderNumber: "1001", TableNumber: "3"},
	))

	require.NotNil(t, in.Unrecognized)
	assert.Equal(t, "mark it ready", in.Unrecognized.RawText)
}

func TestInterpretTableFallbackPicksMostRecent(t *testing.T) {
	now := time.Now().UnixNano()
	in := Interpret("table 4 is ready", ctxWith(
		OrderRef{OrderNumber: "1001", TableNumber: "4", CreatedAt: now - 100},
		OrderRef{OrderNumber: "1002", TableNumber: "4", CreatedAt: now},
		OrderRef{OrderNumber: "1003", TableNumber: "7", CreatedAt: now + 50},
	))

	require.NotNil(t, in.ChangeStatus)
	assert.Equal(t, "1002", in.ChangeStatus.OrderRef)
	assert.Equal(t, domain.StatusReady, in.ChangeStatus.TargetStatus)
}

func TestInterpretExplicitNumberBeatsTable(t *testing.T) {
	in := Interpret("order 2002 for table 4 is done", ctxWith(
		OrderRef{OrderNumber: "1002", TableNumber: "4"},
	))

	require.NotNil(t, in.ChangeStatus)
	assert.Equal(t, "2002", in.ChangeStatus.OrderRef)
	assert.Equal(t, domain.StatusCompleted, in.ChangeStatus.TargetStatus)
}

func TestInterpretEarliestStatusKeywordWins(t *testing.T) {
	in := Interpret("order 7 ready, not billed", ctxWith())

	require.NotNil(t, in.ChangeStatus)
	assert.Equal(t, domain.StatusReady, in.ChangeStatus.TargetStatus)
}

func TestInterpretCreationBeatsStatus(t *testing.T) {
	in := Interpret("create order for table 2 and mark it pending", Context{})

	require.NotNil(t, in.Create)
	assert.Equal(t, "2", in.Create.Table)
}

func TestInterpretDeleteOrder(t *testing.T) {
	in := Interpret("cancel order 42", Context{})

	require.NotNil(t, in.Delete)
	assert.Equal(t, "42", in.Delete.OrderRef)
}

func TestInterpretDeleteWithoutReference(t *testing.T) {
	in := Interpret("cancel that thing", Context{})

	require.NotNil(t, in.Unrecognized)
}

func TestInterpretBilledKeyword(t *testing.T) {
	in := Interpret("mark order 9 as billed", Context{})

	require.NotNil(t, in.ChangeStatus)
	assert.Equal(t, domain.StatusBilled, in.ChangeStatus.TargetStatus)
}

func TestInterpretGibberish(t *testing.T) {
	in := Interpret("what is the weather today", Context{})
	require.NotNil(t, in.Unrecognized)
}
