package http

import (
	"fmt"
	"net/http"
)

// NotFoundHandler answers unknown routes with the API's JSON error shape,
// naming the route so a misconfigured bot or gateway is easy to spot.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
}
