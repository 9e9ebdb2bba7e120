package entity

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		current OrderStatus
		action  OrderAction
		want    OrderStatus
	}{
		{StatusPending, ActionStartCheckout, StatusPendingPayment},
		{StatusPendingPayment, ActionMarkPaid, StatusPaid},
		{StatusPaid, ActionAuthorize, StatusPaymentAuthorized},
		{StatusPaymentAuthorized, ActionAwaitInfluencer, StatusAwaitingInfluencer},
		{StatusPaymentAuthorized, ActionCapture, StatusInProgress},
		{StatusAwaitingInfluencer, ActionCapture, StatusInProgress},
		{StatusAwaitingInfluencer, ActionRefuse, StatusRefusedByInfluencer},
		{StatusInProgress, ActionDeliver, StatusDelivered},
		{StatusDelivered, ActionComplete, StatusCompleted},
		{StatusInProgress, ActionDispute, StatusDisputed},
		{StatusDisputed, ActionComplete, StatusCompleted},
		{StatusInProgress, ActionCompletePayment, StatusAutoCompleted},
		{StatusPending, ActionForceCancel, StatusForceCancelled},
		{StatusPaymentAuthorized, ActionCancel, StatusCancelled},
	}

	for _, tc := range cases {
		got, err := Transition(tc.current, tc.action)
		if err != nil {
			t.Fatalf("%s from %s: unexpected rejection: %v", tc.action, tc.current, err)
		}
		if got != tc.want {
			t.Fatalf("%s from %s: got %s, want %s", tc.action, tc.current, got, tc.want)
		}
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	cases := []struct {
		current OrderStatus
		action  OrderAction
	}{
		{StatusPending, ActionCapture},
		{StatusPending, ActionComplete},
		{StatusCompleted, ActionCancel},
		{StatusCancelled, ActionStartCheckout},
		{StatusRefusedByInfluencer, ActionCapture},
		{StatusDisputed, ActionDeliver},
	}

	for _, tc := range cases {
		if _, err := Transition(tc.current, tc.action); !errors.Is(err, ErrTransitionRejected) {
			t.Fatalf("%s from %s: expected rejection, got %v", tc.action, tc.current, err)
		}
	}
}

func TestTerminalStatusHasNoTransitions(t *testing.T) {
	for status := range transitions {
		if TerminalStatus(status) {
			t.Fatalf("%s has transitions but is marked terminal", status)
		}
	}

	for _, status := range []OrderStatus{
		StatusCompleted, StatusAutoCompleted, StatusCancelled,
		StatusRefusedByInfluencer, StatusForceCancelled,
	} {
		if !TerminalStatus(status) {
			t.Fatalf("%s must be terminal", status)
		}
		if _, ok := transitions[status]; ok {
			t.Fatalf("%s is terminal but has transitions", status)
		}
	}
}

func TestPartyOf(t *testing.T) {
	order := &Order{MerchantID: "merchant-1", InfluencerID: "influencer-1"}

	if !order.PartyOf("merchant-1") || !order.PartyOf("influencer-1") {
		t.Fatal("merchant and influencer are parties")
	}
	if order.PartyOf("someone-else") || order.PartyOf("") {
		t.Fatal("outsiders are not parties")
	}
}
