package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	SubmitEvent    http.HandlerFunc
	History        http.HandlerFunc
	ActiveSessions http.HandlerFunc
	SimilarPlates  http.HandlerFunc
	Health         http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	if routes.SubmitEvent != nil {
		mux.Handle("/lpr", method(http.MethodPost, routes.SubmitEvent))
	}
	if routes.History != nil {
		mux.Handle("/lpr/history", method(http.MethodGet, routes.History))
	}
	if routes.ActiveSessions != nil {
		mux.Handle("/lpr/sessions/active", method(http.MethodGet, routes.ActiveSessions))
	}
	if routes.SimilarPlates != nil {
		mux.Handle("/lpr/similar", method(http.MethodGet, routes.SimilarPlates))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
