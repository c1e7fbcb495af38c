package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/gin-gonic/gin"
)

type publishWindowRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type createBookingRequest struct {
	WindowID    int64  `json:"window_id" binding:"required"`
	CourseID    int64  `json:"course_id" binding:"required"`
	SessionType string `json:"session_type"`
}

type rescheduleRequest struct {
	WindowID int64  `json:"window_id" binding:"required"`
	Notes    string `json:"notes"`
}

func (h *Handler) findOpenWindows(c *gin.Context) {
	mentorID, ok := pathID(c, "mentorID")
	if !ok {
		return
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}
	if from == nil || to == nil {
		badRequest(c, "from and to are required")
		return
	}

	windows, err := h.availability.FindOpenWindows(c.Request.Context(), mentorID, *from, *to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if windows == nil {
		windows = []model.OpenWindow{}
	}
	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

func (h *Handler) publishWindow(c *gin.Context) {
	var req publishWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	window, err := h.availability.PublishWindow(c.Request.Context(), actorFrom(c), req.StartTime, req.EndTime)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, window)
}

func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), actorFrom(c), service.CreateBookingRequest{
		WindowID:    req.WindowID,
		CourseID:    req.CourseID,
		SessionType: req.SessionType,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) approveBooking(c *gin.Context) {
	h.transition(c, h.bookings.ApproveBooking)
}

func (h *Handler) rejectReschedule(c *gin.Context) {
	h.transition(c, h.bookings.RejectReschedule)
}

func (h *Handler) completeBooking(c *gin.Context) {
	h.transition(c, h.bookings.CompleteBooking)
}

func (h *Handler) proposeReschedule(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.ProposeReschedule(c.Request.Context(), actorFrom(c), bookingID, req.WindowID, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type transitionFunc func(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error)

func (h *Handler) transition(c *gin.Context, apply transitionFunc) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := apply(c.Request.Context(), actorFrom(c), bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) listBookings(c *gin.Context) {
	req := service.ListBookingsRequest{}

	if raw := c.Query("courseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "courseId must be an integer")
			return
		}
		req.CourseID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseBookingStatus(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Status = &status
	}

	var ok bool
	if req.From, ok = queryTime(c, "from"); !ok {
		return
	}
	if req.To, ok = queryTime(c, "to"); !ok {
		return
	}
	if req.Page, ok = queryInt(c, "page"); !ok {
		return
	}
	if req.PageSize, ok = queryInt(c, "pageSize"); !ok {
		return
	}

	page, err := h.bookings.ListBookings(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) bookingHistory(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.bookings.BookingHistory(c.Request.Context(), actorFrom(c), bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if history == nil {
		history = []model.BookingTransition{}
	}
	c.JSON(http.StatusOK, gin.H{"transitions": history})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, name+" must be an RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
