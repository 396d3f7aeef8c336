package router

import (
	"net/http"
	handler "recordstore/internal/record"
	"recordstore/internal/record/store"
	"recordstore/middleware"
	"recordstore/socket"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

func Setup(s *store.RecordStore, hub *socket.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(opts.JWTSecret)

	// WebSocket notification feed
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.Caller(r.Context()))
	})
	mux.Handle("GET /ws", auth(wsHandler))

	// REST API
	h := handler.NewRecordHandler(s)

	mux.Handle("POST /api/users", auth(http.HandlerFunc(h.CreateUser)))
	mux.HandleFunc("GET /api/users", h.GetUserDetails)
	mux.HandleFunc("GET /api/users/documents", h.GetDocumentsByUser)
	mux.Handle("POST /api/documents", auth(http.HandlerFunc(h.CreateDocument)))
	mux.Handle("POST /api/audit", auth(http.HandlerFunc(h.AddAuditEntries)))
	mux.HandleFunc("GET /api/audit", h.GetAuditHistory)
	mux.Handle("POST /api/shares", auth(http.HandlerFunc(h.ShareDocument)))
	mux.Handle("GET /api/shares", auth(http.HandlerFunc(h.GetShareDocument)))
	mux.HandleFunc("GET /api/access", h.HasAccess)

	return middleware.CORSMiddleware(opts.AllowedOrigins)(mux)
}
