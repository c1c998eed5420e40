package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"buildops/internal/export"
	"buildops/internal/models"
	"buildops/internal/service"

	"github.com/go-chi/chi/v5"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &requestError{status: http.StatusBadRequest, msg: "invalid id"}
	}
	return id, nil
}

// Clients

func (s *HTTPServer) listClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"clients": s.svc.Clients.List(r.Context())})
}

func (s *HTTPServer) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	client, err := s.svc.Clients.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *HTTPServer) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	client, err := s.svc.Clients.Add(r.Context(), service.ClientInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *HTTPServer) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req clientRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	client := models.Client{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
	if err := s.svc.Clients.Update(r.Context(), client); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeFresh(w, r, func() (any, error) { return s.svc.Clients.Get(r.Context(), id) })
}

func (s *HTTPServer) deleteClient(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Clients.Delete)
}

// Services

func (s *HTTPServer) listServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": s.svc.Catalog.List(r.Context())})
}

func (s *HTTPServer) getService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	svc, err := s.svc.Catalog.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *HTTPServer) createService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	svc, err := s.svc.Catalog.Add(r.Context(), service.ServiceInput{Name: req.Name, HourlyRate: *req.HourlyRate})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (s *HTTPServer) updateService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req serviceRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	svc := models.Service{ID: id, Name: req.Name, HourlyRate: *req.HourlyRate}
	if err := s.svc.Catalog.Update(r.Context(), svc); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *HTTPServer) deleteService(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Catalog.Delete)
}

// Inventory

func (s *HTTPServer) listInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := s.svc.Inventory.Search(r.Context(), q.Get("q"), q.Get("category"))
	if items == nil {
		items = []models.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.svc.Inventory.Categories(r.Context())})
}

func (s *HTTPServer) getInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := s.svc.Inventory.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) createInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := s.svc.Inventory.Add(r.Context(), service.InventoryInput{
		Name:     req.Name,
		Category: req.Category,
		Quantity: *req.Quantity,
		Status:   req.Status,
		Notes:    req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *HTTPServer) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req inventoryRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	item := models.InventoryItem{
		ID:       id,
		Name:     req.Name,
		Category: req.Category,
		Quantity: *req.Quantity,
		Status:   req.Status,
		Notes:    req.Notes,
	}
	if err := s.svc.Inventory.Update(r.Context(), item); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeFresh(w, r, func() (any, error) { return s.svc.Inventory.Get(r.Context(), id) })
}

func (s *HTTPServer) deleteInventory(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Inventory.Delete)
}

// Bookings

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings := s.svc.Bookings.ListBookings(r.Context())
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := bookings[:0]
		for _, b := range bookings {
			if b.Status == status {
				filtered = append(filtered, b)
			}
		}
		bookings = filtered
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.Bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		ClientID:  req.ClientID,
		Date:      req.Date,
		LineItems: req.lineItems(),
		Notes:     req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req bookingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	booking := models.Booking{
		ID:       id,
		ClientID: req.ClientID,
		Date:     models.Day(req.Date),
		Services: req.lineItems(),
		Notes:    req.Notes,
		Status:   req.Status,
	}
	if err := s.svc.Bookings.UpdateBooking(r.Context(), booking); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeFresh(w, r, func() (any, error) { return s.svc.Bookings.GetBooking(r.Context(), id) })
}

func (s *HTTPServer) deleteBooking(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.svc.Bookings.DeleteBooking)
}

func (s *HTTPServer) changeBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) getSchedule(w http.ResponseWriter, r *http.Request) {
	day, err := models.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		s.fail(w, r, &requestError{status: http.StatusBadRequest, msg: err.Error()})
		return
	}
	bookings := s.svc.Bookings.BookingsOnDay(r.Context(), day)
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day, "bookings": bookings})
}

// Payments

func (s *HTTPServer) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payments := s.svc.Bookings.ListPayments(r.Context(), service.PaymentFilter{
		Status: q.Get("status"),
		Search: q.Get("q"),
	})
	if payments == nil {
		payments = []service.PaymentView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (s *HTTPServer) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payment, err := s.svc.Bookings.GetPayment(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *HTTPServer) processPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payment, err := s.svc.Bookings.ProcessPayment(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *HTTPServer) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	invoice, err := s.svc.Reports.Invoice(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

// Reports

func (s *HTTPServer) getStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.StatementFilter{
		StartDate: models.Day(strings.TrimSpace(q.Get("startDate"))),
		EndDate:   models.Day(strings.TrimSpace(q.Get("endDate"))),
	}
	if raw := q.Get("clientId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(w, r, &requestError{status: http.StatusBadRequest, msg: "invalid clientId"})
			return
		}
		filter.ClientID = id
	}

	st, err := s.svc.Reports.BillingStatement(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if q.Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, st)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(st)+`"`)
	if err := export.WriteStatement(w, st, s.svc.Location); err != nil {
		s.logger.Error().Err(err).Msg("write statement workbook")
	}
}

func (s *HTTPServer) getDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Reports.Dashboard(r.Context(), s.svc.Now()))
}

// helpers

func (s *HTTPServer) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64) error) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFresh re-reads a record after an update so the response carries
// server-side fields such as createdAt and totals.
func (s *HTTPServer) writeFresh(w http.ResponseWriter, r *http.Request, get func() (any, error)) {
	rec, err := get()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
