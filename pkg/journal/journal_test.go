package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), 100, 176, "DU1234567")
	require.NoError(t, err)
	require.NotNil(t, j)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenDisabledWhenPathEmpty(t *testing.T) {
	j, err := Open("", 100, 176, "")
	require.NoError(t, err)
	require.Nil(t, j)

	// A nil journal accepts writes and reads without effect.
	require.NoError(t, j.RecordOrder(1, "AAPL", "SMART", "BUY", "LMT", 100, 185.50))
	rows, err := j.SessionOrders()
	require.NoError(t, err)
	require.Empty(t, rows)
	require.NoError(t, j.Close())
}

func TestOrderLifecycle(t *testing.T) {
	j := openTestJournal(t)
	require.NotEmpty(t, j.SessionID())

	require.NoError(t, j.RecordOrder(90, "AAPL", "SMART", "BUY", "LMT", 100, 185.50))
	require.NoError(t, j.UpdateOrderStatus(90, "Filled"))

	orders, err := j.SessionOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, 90, orders[0].OrderID)
	require.Equal(t, "Filled", orders[0].Status)
	require.Equal(t, 185.50, orders[0].LimitPrice)
}

func TestExecutionIdempotence(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.RecordExecution("0000e0d5.1", 90, "AAPL", "BOT", 100, 185.40, "20260830 10:01:02"))
	require.NoError(t, j.RecordExecution("0000e0d5.1", 90, "AAPL", "BOT", 100, 185.40, "20260830 10:01:02"))
	require.NoError(t, j.RecordCommission("0000e0d5.1", 1.25))

	execs, err := j.OrderExecutions(90)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	require.Equal(t, 1.25, execs[0].Commission)
}

func TestEmptyExecutionIDRejected(t *testing.T) {
	j := openTestJournal(t)
	require.Error(t, j.RecordExecution("", 90, "AAPL", "BOT", 100, 185.40, ""))
}
