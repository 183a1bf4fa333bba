package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerDTO struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type createBookingRequest struct {
	FlightID   int64        `json:"flight_id"`
	Passenger  passengerDTO `json:"passenger"`
	SeatNumber string       `json:"seat_number"`
}

type bookingResponse struct {
	PNR           string       `json:"pnr"`
	FlightID      int64        `json:"flight_id"`
	Passenger     passengerDTO `json:"passenger"`
	SeatNumber    string       `json:"seat_number"`
	BookingStatus string       `json:"booking_status"`
	FinalFare     string       `json:"final_fare"`
	PaymentStatus string       `json:"payment_status"`
	PaymentRef    string       `json:"payment_ref"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

type bookingHistoryDTO struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	PerformedBy string `json:"performed_by"`
	PerformedAt string `json:"performed_at"`
}

type bookingDetailsResponse struct {
	bookingResponse
	CanCancel       bool                `json:"can_cancel"`
	CurrentFare     string              `json:"current_fare,omitempty"`
	PriceDifference string              `json:"price_difference,omitempty"`
	History         []bookingHistoryDTO `json:"history"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:pnr", h.get)
	router.DELETE("/:pnr", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		FlightID: req.FlightID,
		Passenger: domain.Passenger{
			Name:  req.Passenger.Name,
			Age:   req.Passenger.Age,
			Phone: req.Passenger.Phone,
			Email: req.Passenger.Email,
		},
		SeatNumber: req.SeatNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	details, err := h.service.GetBooking(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingDetailsResponse(details))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		PNR:      b.PNR,
		FlightID: b.FlightID,
		Passenger: passengerDTO{
			Name:  b.Passenger.Name,
			Age:   b.Passenger.Age,
			Phone: b.Passenger.Phone,
			Email: b.Passenger.Email,
		},
		SeatNumber:    b.SeatNumber,
		BookingStatus: string(b.Status),
		FinalFare:     b.FinalFare.StringFixed(2),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBookingDetailsResponse(d *booking.BookingDetails) bookingDetailsResponse {
	resp := bookingDetailsResponse{
		bookingResponse: toBookingResponse(d.Booking),
		CanCancel:       d.CanCancel,
		History: lo.Map(d.History, func(e domain.BookingHistoryEntry, _ int) bookingHistoryDTO {
			return bookingHistoryDTO{
				Action:      string(e.Action),
				Description: e.Description,
				PerformedBy: e.PerformedBy,
				PerformedAt: e.PerformedAt.Format(time.RFC3339),
			}
		}),
	}
	if d.CurrentFare != nil {
		resp.CurrentFare = d.CurrentFare.ComputedFare.StringFixed(2)
		resp.PriceDifference = d.PriceDifference.StringFixed(2)
	}
	return resp
}
