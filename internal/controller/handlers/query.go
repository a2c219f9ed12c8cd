package handlers

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/auditorium_booking/internal/controller/middleware"
	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/gin-gonic/gin"
)

// PendingBookings GET /api/booking/pending
func (h *Handlers) PendingBookings(c *gin.Context) {
	bookings, err := h.queryService.PendingBookings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// PendingCount GET /api/booking/pending-count
func (h *Handlers) PendingCount(c *gin.Context) {
	count, err := h.queryService.PendingCount(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// ApprovedForDate GET /api/booking/approved?date=YYYY-MM-DD
func (h *Handlers) ApprovedForDate(c *gin.Context) {
	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	slots, err := h.queryService.BookingsForDate(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// ApprovedDates GET /api/booking/approved-dates?from=&to=
// По умолчанию месяц начиная с сегодняшнего дня
func (h *Handlers) ApprovedDates(c *gin.Context) {
	from, err := optionalDate(c, "from")
	if err != nil {
		h.respondError(c, err)
		return
	}
	to, err := optionalDate(c, "to")
	if err != nil {
		h.respondError(c, err)
		return
	}

	dates, err := h.queryService.BookedDates(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dates)
}

// FreeWindows GET /api/booking/free?date=YYYY-MM-DD
func (h *Handlers) FreeWindows(c *gin.Context) {
	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	windows := h.queryService.FreeWindows(date)
	out := make([]freeWindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, freeWindowResponse{Start: w.Start(), End: w.End()})
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "free": out})
}

// MyRequests GET /api/booking/my-requests, заявки текущего HOD
func (h *Handlers) MyRequests(c *gin.Context) {
	requester, _ := middleware.RequesterFrom(c)

	bookings, err := h.queryService.RequestsBy(c.Request.Context(), requester.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// History GET /api/booking
func (h *Handlers) History(c *gin.Context) {
	bookings, err := h.queryService.History(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// RecentBookings GET /api/booking/recent-bookings?days=N
func (h *Handlers) RecentBookings(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.badRequest(c, "days must be a number")
			return
		}
		days = n
	}

	bookings, err := h.queryService.RecentBookings(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// Metrics GET /api/booking/metrics
func (h *Handlers) Metrics(c *gin.Context) {
	metrics, err := h.queryService.Metrics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// optionalDate дата из query-параметра; нулевая, если параметра нет
func optionalDate(c *gin.Context, name string) (model.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return model.Date{}, nil
	}
	return model.ParseDate(raw)
}
