package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions_TargetsAreKnown(t *testing.T) {
	for from, targets := range StatusTransitions {
		for _, to := range targets {
			assert.True(t, IsKnownStatus(to), "переход %s -> %s ведёт в неизвестный статус", from, to)
			assert.NotEqual(t, from, to, "статус %s ссылается сам на себя", from)
		}
	}
}

func TestStatusTransitions_NoDuplicateTargets(t *testing.T) {
	for from, targets := range StatusTransitions {
		seen := make(map[string]bool, len(targets))
		for _, to := range targets {
			assert.False(t, seen[to], "переход %s -> %s указан дважды", from, to)
			seen[to] = true
		}
	}
}

func TestStatusTransitions_EveryStatusReachesTerminal(t *testing.T) {
	for start := range StatusTransitions {
		visited := map[string]bool{start: true}
		queue := []string{start}
		reached := IsTerminalStatus(start)

		for len(queue) > 0 && !reached {
			current := queue[0]
			queue = queue[1:]
			for _, next := range StatusTransitions[current] {
				if IsTerminalStatus(next) {
					reached = true
					break
				}
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		assert.True(t, reached, "из статуса %s недостижим ни один терминальный", start)
	}
}

func TestStatusTransitions_EveryStatusReachable(t *testing.T) {
	incoming := make(map[string]bool)
	for _, targets := range StatusTransitions {
		for _, to := range targets {
			incoming[to] = true
		}
	}
	for status := range StatusTransitions {
		// unpaid — единственная точка входа жизненного цикла.
		if status == OrderStatusUnpaid {
			continue
		}
		assert.True(t, incoming[status], "в статус %s не ведёт ни один переход", status)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range TerminalOrderStatuses {
		require.True(t, IsKnownStatus(status))
		assert.True(t, IsTerminalStatus(status))
	}

	// archived — абсолютный конец: из него нет выхода.
	assert.Empty(t, StatusTransitions[OrderStatusArchived])
	assert.False(t, IsTerminalStatus(OrderStatusInProgress))
}

func TestDefaultPaymentGatedStatuses(t *testing.T) {
	for _, status := range DefaultPaymentGatedStatuses {
		assert.True(t, IsKnownStatus(status), "закрытый оплатой статус %s неизвестен", status)
	}
	assert.Contains(t, DefaultPaymentGatedStatuses, OrderStatusInProgress)
	assert.NotContains(t, DefaultPaymentGatedStatuses, OrderStatusCancelled)
}

func TestAssignedOrderStatuses(t *testing.T) {
	for _, status := range AssignedOrderStatuses {
		assert.True(t, IsKnownStatus(status))
		assert.False(t, IsTerminalStatus(status), "терминальный статус %s не занимает слот писателя", status)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.ElementsMatch(t, []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusAvailable,
		OrderStatusInProgress,
		OrderStatusCancelled,
	}, NextStatuses(OrderStatusUnpaid))
	assert.Empty(t, NextStatuses("no_such_status"))
}
