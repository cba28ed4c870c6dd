package handler

import "net/http"

type redirectResponse struct {
	url  string
	code int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, req, r.url, r.code)
	return nil
}

// Redirect answers 303 See Other with Cache-Control: no-store.
func Redirect(url string) Response {
	return redirectResponse{url: url, code: http.StatusSeeOther}
}
