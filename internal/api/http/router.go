package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gpms-backend/internal/realtime"
	"gpms-backend/internal/security"
	"gpms-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the workflow engines exposed over HTTP
type Services struct {
	Invitations   service.InvitationService
	GroupRequests service.GroupRequestService
	Approvals     service.ApprovalService
	Notifications service.NotificationService
	Hub           *realtime.Hub
}

// handlerFunc is an HTTP handler whose error is rendered by writeError
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		writeError(w, r, err)
	}
}

// NewRouter registers every workflow endpoint. Route names select the
// security level in config.EndpointSecurityConfig.
func NewRouter(svc Services, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(observe, NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("health")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	api := router.PathPrefix("/api/v1").Subrouter()

	inv := NewInvitationHandler(svc.Invitations)
	api.Handle("/invitations", handlerFunc(inv.Send)).Methods(http.MethodPost).Name("invitations.send")
	api.Handle("/invitations", handlerFunc(inv.List)).Methods(http.MethodGet).Name("invitations.list")
	api.Handle("/invitations/{id:[0-9]+}/accept", handlerFunc(inv.Accept)).Methods(http.MethodPost).Name("invitations.accept")
	api.Handle("/invitations/{id:[0-9]+}/reject", handlerFunc(inv.Reject)).Methods(http.MethodPost).Name("invitations.reject")

	grp := NewGroupRequestHandler(svc.GroupRequests)
	api.Handle("/group-requests", handlerFunc(grp.Submit)).Methods(http.MethodPost).Name("group_requests.submit")
	api.Handle("/group-requests/{id:[0-9]+}", handlerFunc(grp.Get)).Methods(http.MethodGet).Name("group_requests.get")
	api.Handle("/group-approvals/{id:[0-9]+}/respond", handlerFunc(grp.Respond)).Methods(http.MethodPost).Name("group_requests.respond")

	appr := NewApprovalHandler(svc.Approvals)
	api.Handle("/approvals", handlerFunc(appr.Create)).Methods(http.MethodPost).Name("approvals.create")
	api.Handle("/approvals/pending", handlerFunc(appr.Pending)).Methods(http.MethodGet).Name("approvals.pending")
	api.Handle("/approvals/{id:[0-9]+}/approve", handlerFunc(appr.Approve)).Methods(http.MethodPost).Name("approvals.approve")
	api.Handle("/approvals/{id:[0-9]+}/reject", handlerFunc(appr.Reject)).Methods(http.MethodPost).Name("approvals.reject")
	api.Handle("/approvals/{id:[0-9]+}/return", handlerFunc(appr.Return)).Methods(http.MethodPost).Name("approvals.return")

	notes := NewNotificationHandler(svc.Notifications, svc.Hub)
	api.Handle("/notifications", handlerFunc(notes.List)).Methods(http.MethodGet).Name("notifications.list")
	api.Handle("/notifications/unread-count", handlerFunc(notes.UnreadCount)).Methods(http.MethodGet).Name("notifications.unread_count")
	api.Handle("/notifications/stats", handlerFunc(notes.Stats)).Methods(http.MethodGet).Name("notifications.stats")
	api.Handle("/notifications/read-all", handlerFunc(notes.MarkAllRead)).Methods(http.MethodPost).Name("notifications.mark_all_read")
	api.Handle("/notifications/{id:[0-9]+}/read", handlerFunc(notes.MarkRead)).Methods(http.MethodPost).Name("notifications.mark_read")
	api.Handle("/notifications/{id:[0-9]+}", handlerFunc(notes.Delete)).Methods(http.MethodDelete).Name("notifications.delete")
	router.Handle("/ws/notifications", handlerFunc(notes.Stream)).Methods(http.MethodGet).Name("notifications.stream")

	return router
}

func pathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return int32(id), nil
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

// decodeOptional accepts an empty body for endpoints whose fields are all optional.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decode(r, dst)
}
