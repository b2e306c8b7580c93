package status

import (
	"net/http"
)

func writeError(w http.ResponseWriter, statusCode int, endpoint string, err error) {
	log.Debugw("serving request", "endpoint", endpoint, "err", err)

	w.WriteHeader(statusCode)

	_, err = w.Write([]byte(err.Error()))
	if err != nil {
		log.Errorw("writing error response", "endpoint", endpoint, "err", err)
	}
}
