package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes data with the given status. The body is encoded before any
// header goes out, so an unencodable value becomes a plain 500.
func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// ErrorDetails is Error with extra string fields next to "error".
func ErrorDetails(w http.ResponseWriter, r *http.Request, code int, message string, details map[string]string) {
	body := make(map[string]string, len(details)+1)
	for k, v := range details {
		body[k] = v
	}
	body["error"] = message
	JSON(w, r, code, body)
}
