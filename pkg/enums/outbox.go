package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayout  OutboxAggregateType = "payout"
	AggregateUser    OutboxAggregateType = "user"
	AggregatePartner OutboxAggregateType = "partner"
	AggregateLedger  OutboxAggregateType = "ledger_entry"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayout,
	AggregateUser,
	AggregatePartner,
	AggregateLedger,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPaid           OutboxEventType = "order_paid"
	EventOrderDelivered      OutboxEventType = "order_delivered"
	EventOrderRefunded       OutboxEventType = "order_refunded"
	EventCommissionRecorded  OutboxEventType = "commission_recorded"
	EventPayoutRequested     OutboxEventType = "payout_requested"
	EventPayoutExecuted      OutboxEventType = "payout_executed"
	EventPayoutFailed        OutboxEventType = "payout_failed"
	EventBalanceAdjusted     OutboxEventType = "balance_adjusted"
	EventUserBlocked         OutboxEventType = "user_blocked"
	EventUserUnblocked       OutboxEventType = "user_unblocked"
	EventPayoutBlockToggled  OutboxEventType = "payout_block_toggled"
	EventPartnerBlockToggled OutboxEventType = "partner_block_toggled"
	EventCouponUsageConsumed OutboxEventType = "coupon_usage_consumed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderDelivered,
	EventOrderRefunded,
	EventCommissionRecorded,
	EventPayoutRequested,
	EventPayoutExecuted,
	EventPayoutFailed,
	EventBalanceAdjusted,
	EventUserBlocked,
	EventUserUnblocked,
	EventPayoutBlockToggled,
	EventPartnerBlockToggled,
	EventCouponUsageConsumed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
