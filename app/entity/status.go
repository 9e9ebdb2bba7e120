package entity

import "fmt"

type OrderStatus string

const (
	StatusPending             OrderStatus = "pending"
	StatusPendingPayment      OrderStatus = "pending_payment"
	StatusPaid                OrderStatus = "paid"
	StatusPaymentAuthorized   OrderStatus = "payment_authorized"
	StatusAwaitingInfluencer  OrderStatus = "en_attente_confirmation_influenceur"
	StatusInProgress          OrderStatus = "en_cours"
	StatusDelivered           OrderStatus = "delivered"
	StatusDisputed            OrderStatus = "en_contestation"
	StatusCompleted           OrderStatus = "terminée"
	StatusAutoCompleted       OrderStatus = "completed"
	StatusCancelled           OrderStatus = "annulée"
	StatusRefusedByInfluencer OrderStatus = "refusée_par_influenceur"
	StatusForceCancelled      OrderStatus = "cancelled"
)

type OrderAction string

const (
	ActionStartCheckout   OrderAction = "start_checkout"
	ActionMarkPaid        OrderAction = "mark_paid"
	ActionAuthorize       OrderAction = "authorize"
	ActionAwaitInfluencer OrderAction = "await_influencer"
	ActionCapture         OrderAction = "capture"
	ActionRefuse          OrderAction = "refuse"
	ActionDeliver         OrderAction = "deliver"
	ActionDispute         OrderAction = "dispute"
	ActionComplete        OrderAction = "complete"
	ActionCompletePayment OrderAction = "complete_payment"
	ActionCancel          OrderAction = "cancel"
	ActionForceCancel     OrderAction = "force_cancel"
)

// ErrTransitionRejected is wrapped by Transition with the offending
// status/action pair.
var ErrTransitionRejected = fmt.Errorf("transition rejected")

// transitions is the single authoritative table of legal order moves.
// Every lifecycle handler consults it instead of inlining status checks.
var transitions = map[OrderStatus]map[OrderAction]OrderStatus{
	StatusPending: {
		ActionStartCheckout: StatusPendingPayment,
		ActionCancel:        StatusCancelled,
		ActionForceCancel:   StatusForceCancelled,
	},
	StatusPendingPayment: {
		ActionMarkPaid:  StatusPaid,
		ActionAuthorize: StatusPaymentAuthorized,
		ActionCancel:    StatusCancelled,
	},
	StatusPaid: {
		ActionAuthorize:       StatusPaymentAuthorized,
		ActionCompletePayment: StatusAutoCompleted,
		ActionCancel:          StatusCancelled,
	},
	StatusPaymentAuthorized: {
		ActionAwaitInfluencer: StatusAwaitingInfluencer,
		ActionCapture:         StatusInProgress,
		ActionRefuse:          StatusRefusedByInfluencer,
		ActionCancel:          StatusCancelled,
		ActionCompletePayment: StatusAutoCompleted,
	},
	StatusAwaitingInfluencer: {
		ActionCapture: StatusInProgress,
		ActionRefuse:  StatusRefusedByInfluencer,
		ActionCancel:  StatusCancelled,
	},
	StatusInProgress: {
		ActionDeliver:         StatusDelivered,
		ActionDispute:         StatusDisputed,
		ActionComplete:        StatusCompleted,
		ActionCompletePayment: StatusAutoCompleted,
		ActionCancel:          StatusCancelled,
	},
	StatusDelivered: {
		ActionComplete:        StatusCompleted,
		ActionDispute:         StatusDisputed,
		ActionCompletePayment: StatusAutoCompleted,
		ActionCancel:          StatusCancelled,
	},
	StatusDisputed: {
		ActionComplete: StatusCompleted,
		ActionCancel:   StatusCancelled,
	},
}

// Transition resolves the next status for an action, or rejects it.
func Transition(current OrderStatus, action OrderAction) (OrderStatus, error) {
	if actions, ok := transitions[current]; ok {
		if next, ok := actions[action]; ok {
			return next, nil
		}
	}
	return "", fmt.Errorf("%w: %s from %s", ErrTransitionRejected, action, current)
}

// CanTransition reports whether the action is legal from the current status.
func CanTransition(current OrderStatus, action OrderAction) bool {
	_, err := Transition(current, action)
	return err == nil
}

// TerminalStatus reports whether no further transitions exist for the status.
func TerminalStatus(status OrderStatus) bool {
	switch status {
	case StatusCompleted, StatusAutoCompleted, StatusCancelled,
		StatusRefusedByInfluencer, StatusForceCancelled:
		return true
	default:
		return false
	}
}
