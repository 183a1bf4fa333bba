package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	defaultFareDays = 7
	maxFareDays     = 90
)

type FlightHandler struct {
	service flights.FlightUseCase
	now     func() time.Time
}

type flightResponse struct {
	ID             int64  `json:"id"`
	FlightNo       string `json:"flight_no"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	TotalSeats     int    `json:"total_seats"`
	SeatsAvailable int    `json:"seats_available"`
	BaseFare       string `json:"base_fare"`
	Status         string `json:"status"`
}

type quoteResponse struct {
	FlightID         int64  `json:"flight_id"`
	Mode             string `json:"mode"`
	BaseFare         string `json:"base_fare"`
	Occupancy        string `json:"occupancy"`
	SeatsAvailable   int    `json:"seats_available"`
	TotalSeats       int    `json:"total_seats"`
	HoursToDeparture int    `json:"hours_to_departure"`
	SeatFactor       string `json:"seat_factor"`
	TimeFactor       string `json:"time_factor"`
	DemandFactor     string `json:"demand_factor"`
	DemandLevel      string `json:"demand_level"`
	Fare             string `json:"fare"`
	ComputedAt       string `json:"computed_at"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service, now: time.Now}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/quote", h.quote)
	router.GET("/:id/fares", h.fares)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(list, func(f domain.Flight, _ int) flightResponse {
		return toFlightResponse(f)
	}))
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) quote(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	q, err := h.service.QuoteFare(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuoteResponse(q))
}

// fares lists the fares charged on a flight over the last ?days days.
func (h *FlightHandler) fares(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	days := defaultFareDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFareDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
		days = n
	}

	since := h.now().Add(-time.Duration(days) * 24 * time.Hour)
	history, err := h.service.FareHistory(c.Request.Context(), id, since)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(history, func(q domain.FareQuote, _ int) quoteResponse {
		return toQuoteResponse(q)
	}))
}

func flightID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func toFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{
		ID:             f.ID,
		FlightNo:       f.FlightNo,
		Origin:         f.Origin,
		Destination:    f.Destination,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		TotalSeats:     f.TotalSeats,
		SeatsAvailable: f.SeatsAvailable,
		BaseFare:       f.BaseFare.StringFixed(2),
		Status:         string(f.Status),
	}
}

func toQuoteResponse(q domain.FareQuote) quoteResponse {
	return quoteResponse{
		FlightID:         q.FlightID,
		Mode:             string(q.Mode),
		BaseFare:         q.BaseFare.StringFixed(2),
		Occupancy:        q.Occupancy.String(),
		SeatsAvailable:   q.SeatsAvailable,
		TotalSeats:       q.TotalSeats,
		HoursToDeparture: q.HoursToDeparture,
		SeatFactor:       q.SeatFactor.String(),
		TimeFactor:       q.TimeFactor.String(),
		DemandFactor:     q.DemandFactor.String(),
		DemandLevel:      string(q.DemandLevel),
		Fare:             q.ComputedFare.StringFixed(2),
		ComputedAt:       q.ComputedAt.Format(time.RFC3339),
	}
}
