// Package lifecycle holds the booking status and payment status transition rules.
//
// The two axes are tracked independently on a booking row but only ever move together
// through the methods on State, so callers never write a status they received from a client.
package lifecycle

import (
	"chalet/shared/failure"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// IsActive reports whether a booking in this status occupies its interval.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ActiveStatuses is the candidate set used when resolving availability.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusDepositPaid   PaymentStatus = "deposit_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusCashOnArrival PaymentStatus = "cash_on_arrival"
)

type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet_transfer"
	PaymentMethodBank   PaymentMethod = "bank_transfer"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodWallet, PaymentMethodBank, PaymentMethodCash:
		return true
	default:
		return false
	}
}

// CollectsDeposit reports whether choosing this method fixes a deposit on the booking.
func (m PaymentMethod) CollectsDeposit() bool {
	return m == PaymentMethodCash
}

// ReviewStatus is the moderation status of a submitted payment.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

var (
	ErrAlreadyCancelled     = failure.State("booking is already cancelled")
	ErrCancelledBooking     = failure.State("booking is cancelled and cannot be confirmed")
	ErrNotPending           = failure.State("payment can only be arranged while the booking is pending")
	ErrPaymentRejected      = failure.State("payment was already rejected")
	ErrPaymentApproved      = failure.State("payment was already approved")
	ErrInvalidPaymentMethod = failure.Validation("payment_method", "payment method must be one of wallet_transfer bank_transfer cash")
)

// State is the pair of status axes plus the payment method that decides how they move.
type State struct {
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
}

// Admit returns the state of a freshly created booking.
func Admit(method PaymentMethod) (State, error) {
	if method == "" {
		method = PaymentMethodBank
	}

	if !method.Valid() {
		return State{}, ErrInvalidPaymentMethod
	}

	return State{
		Status:        StatusPending,
		PaymentStatus: initialPaymentStatus(method),
		PaymentMethod: method,
	}, nil
}

func initialPaymentStatus(method PaymentMethod) PaymentStatus {
	if method.CollectsDeposit() {
		return PaymentStatusCashOnArrival
	}

	return PaymentStatusPending
}

// SelectPaymentMethod switches the method of a pending booking.
func (s State) SelectPaymentMethod(method PaymentMethod) (State, error) {
	if !method.Valid() {
		return s, ErrInvalidPaymentMethod
	}

	if s.Status == StatusCancelled {
		return s, ErrAlreadyCancelled
	}

	if s.Status != StatusPending {
		return s, ErrNotPending
	}

	s.PaymentMethod = method
	s.PaymentStatus = initialPaymentStatus(method)

	return s, nil
}

// ApprovePayment applies an approved payment made with method: cash settles the deposit,
// transfers settle in full. The booking takes the method of the payment that was approved.
func (s State) ApprovePayment(method PaymentMethod) (State, error) {
	if s.Status == StatusCancelled {
		return s, ErrCancelledBooking
	}

	if !method.Valid() {
		return s, ErrInvalidPaymentMethod
	}

	s.PaymentMethod = method

	if method.CollectsDeposit() {
		s.PaymentStatus = PaymentStatusDepositPaid
	} else {
		s.PaymentStatus = PaymentStatusPaid
	}

	s.Status = StatusConfirmed

	return s, nil
}

// RejectPayment resets the payment status and cancels the booking.
func (s State) RejectPayment() State {
	s.PaymentStatus = PaymentStatusPending
	s.Status = StatusCancelled

	return s
}

// Cancel moves the booking to cancelled. Cancelling twice is an error.
func (s State) Cancel() (State, error) {
	if s.Status == StatusCancelled {
		return s, ErrAlreadyCancelled
	}

	s.Status = StatusCancelled

	return s, nil
}

// Approve is the manual owner confirmation. It is a no-op on a confirmed booking.
func (s State) Approve() (State, error) {
	if s.Status == StatusCancelled {
		return s, ErrCancelledBooking
	}

	s.Status = StatusConfirmed

	return s, nil
}

// Approve moves a pending review to approved. changed is false when it already was.
func (r ReviewStatus) Approve() (next ReviewStatus, changed bool, err error) {
	switch r {
	case ReviewApproved:
		return r, false, nil
	case ReviewRejected:
		return r, false, ErrPaymentRejected
	default:
		return ReviewApproved, true, nil
	}
}

// Reject moves a pending review to rejected. changed is false when it already was.
func (r ReviewStatus) Reject() (next ReviewStatus, changed bool, err error) {
	switch r {
	case ReviewRejected:
		return r, false, nil
	case ReviewApproved:
		return r, false, ErrPaymentApproved
	default:
		return ReviewRejected, true, nil
	}
}
