package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"roombook/internal/booking"
	"roombook/internal/slot"
)

const maxBodyBytes = 64 << 10

type BookingHandler struct {
	service *booking.Service
	log     *slog.Logger
}

func NewBookingHandler(service *booking.Service, log *slog.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/rooms", h.Rooms)
	router.GET("/slots", h.Slots)
	router.GET("/availability", h.Availability)
	router.GET("/bookings", h.List)
	router.POST("/bookings", h.Create)
	router.GET("/bookings/:id", h.GetByID)
	router.DELETE("/bookings/:id", h.Cancel)
}

// Routes returns the router wrapped in the request logging and recovery middleware.
func (h *BookingHandler) Routes() http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)

	var handler http.Handler = router
	handler = RequestLogging(h.log)(handler)
	handler = Recovery(h.log)(handler)
	return handler
}

func (h *BookingHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.write("Health", WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Bookings: len(h.service.All()),
	}))
}

func (h *BookingHandler) Rooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.write("Rooms", WriteSuccess(w, newRoomResponses(h.service.Rooms())))
}

// Slots lists start times for a date, or the end times after ?start= when given.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	date, err := slot.ParseDate(query.Get("date"))
	if err != nil {
		h.write("Slots", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "date must be in YYYY-MM-DD form", Field: "date"}))
		return
	}

	resp := SlotsResponse{Date: date.String()}
	raw := query.Get("start")
	if raw == "" {
		resp.Times = shortTimes(h.service.StartTimes(date))
		h.write("Slots", WriteSuccess(w, resp))
		return
	}

	start, err := slot.ParseTimeOfDay(raw)
	if err != nil {
		h.write("Slots", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "start must be in HH:MM form", Field: "start"}))
		return
	}
	resp.StartTime = start.Short()
	resp.Times = shortTimes(h.service.Grid().Ends(start))
	h.write("Slots", WriteSuccess(w, resp))
}

// Availability lists free rooms for ?date=&start=&end=, or every booked interval of the date when no times are given.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if query.Get("start") == "" && query.Get("end") == "" {
		date, err := slot.ParseDate(query.Get("date"))
		if err != nil {
			h.write("Availability", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "date must be in YYYY-MM-DD form", Field: "date"}))
			return
		}
		booked := make(map[string][]string)
		for _, room := range h.service.Rooms() {
			for _, iv := range h.service.Booked(date, room.Name) {
				booked[room.Name] = append(booked[room.Name], iv.String())
			}
		}
		h.write("Availability", WriteSuccess(w, AvailabilityResponse{Date: date.String(), Booked: booked}))
		return
	}

	date, iv, err := booking.ParseSlot(query.Get("date"), query.Get("start"), query.Get("end"))
	if err != nil {
		h.write("Availability", WriteError(w, err))
		return
	}
	if !iv.Valid() {
		h.write("Availability", WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "end time must be after start time", Field: "end_time"}))
		return
	}
	h.write("Availability", WriteSuccess(w, AvailabilityResponse{
		Date:      date.String(),
		StartTime: iv.Start.Short(),
		EndTime:   iv.End.Short(),
		Rooms:     newRoomResponses(h.service.AvailableRooms(date, iv)),
	}))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	past, upcoming := h.service.List(h.service.Now())
	h.write("List", WriteSuccess(w, BookingListResponse{
		Upcoming: newBookingResponses(upcoming),
		Past:     newBookingResponses(past),
	}))
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.bookingID(w, ps)
	if !ok {
		return
	}
	b, err := h.service.Get(id)
	if err != nil {
		h.write("GetByID", WriteError(w, err))
		return
	}
	h.write("GetByID", WriteSuccess(w, newBookingResponse(b)))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateBookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.write("Create", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"}))
		return
	}

	date, iv, err := booking.ParseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		h.write("Create", WriteError(w, err))
		return
	}

	receipt, err := h.service.Create(r.Context(), booking.Request{
		Date:        date,
		Interval:    iv,
		Room:        req.Room,
		Name:        req.Name,
		Email:       req.Email,
		Description: req.Description,
		CCEmails:    booking.SplitEmails(req.CCEmails),
	})
	if err != nil {
		h.logFailure("Create", err)
		h.write("Create", WriteError(w, err))
		return
	}
	h.write("Create", WriteReceipt(w, http.StatusCreated, receipt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := h.bookingID(w, ps)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.write("Cancel", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"}))
		return
	}

	receipt, err := h.service.Cancel(r.Context(), id, req.Email)
	if err != nil {
		h.logFailure("Cancel", err)
		h.write("Cancel", WriteError(w, err))
		return
	}
	h.write("Cancel", WriteReceipt(w, http.StatusOK, receipt))
}

func (h *BookingHandler) bookingID(w http.ResponseWriter, ps httprouter.Params) (int, bool) {
	id, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		h.write("bookingID", WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid booking id: " + ps.ByName("id"), Field: "id"}))
		return 0, false
	}
	return id, true
}

// logFailure keeps rejected requests at debug level.
func (h *BookingHandler) logFailure(handler string, err error) {
	switch {
	case isClientError(err):
		h.log.Debug("request rejected", "handler", handler, "error", err)
	default:
		h.log.Error("request failed", "handler", handler, "error", err)
	}
}

func (h *BookingHandler) write(handler string, err error) {
	if err != nil {
		h.log.Error("failed to write response", "handler", handler, "error", err)
	}
}
