package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Booking statuses as the backend reports them.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Booking is one rental reservation.
type Booking struct {
	ID             ID        `json:"id"`
	Car            Car       `json:"car"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
	TotalAmount    int64     `json:"total_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookingRequest creates a reservation for a car.
type BookingRequest struct {
	CarID          ID     `json:"car_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PickupLocation string `json:"pickup_location"`
	ReturnLocation string `json:"return_location"`
}

// CreateBooking reserves a car. A 2xx response without a booking id fails
// closed.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	var booking Booking
	if err := c.do(ctx, http.MethodPost, "/api/bookings", nil, req, &booking); err != nil {
		return Booking{}, err
	}
	if booking.ID == "" {
		return Booking{}, fmt.Errorf("%w: booking response has no id", ErrInvalidResponse)
	}
	return booking, nil
}

// MyBookings lists the current customer's reservations.
func (c *Client) MyBookings(ctx context.Context) ([]Booking, error) {
	var bookings []Booking
	if err := c.do(ctx, http.MethodGet, "/api/customer/bookings", nil, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking cancels a reservation and returns its updated state.
func (c *Client) CancelBooking(ctx context.Context, id ID) (Booking, error) {
	var booking Booking
	path := fmt.Sprintf("/api/bookings/%s/cancel", url.PathEscape(string(id)))
	err := c.do(ctx, http.MethodPut, path, nil, nil, &booking)
	return booking, err
}
