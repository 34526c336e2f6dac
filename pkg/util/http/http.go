package http

import (
	"fmt"
	"io"
	"net/http"
)

const errBodyLimit = 256

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func EnsureSuccessStatusCode(resp *http.Response) error {
	if !isSuccessStatusCode(resp) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		if len(body) > 0 {
			return fmt.Errorf("http response did not indicate success status code: %s: %s", resp.Status, string(body))
		}

		return fmt.Errorf("http response did not indicate success status code: %s", resp.Status)
	}
	return nil
}
