package cors

import "net/http"

// AllowAll sets Access-Control-Allow-Origin: * before the rest of the chain
// runs, so error responses written further down carry it as well.
func AllowAll(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}
