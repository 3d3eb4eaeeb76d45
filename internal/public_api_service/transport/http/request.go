package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxRequestBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// decodeRequest reads a JSON body into dst and validates it. The returned
// error message is safe to show to API clients.
func decodeRequest(r *http.Request, validate *validator.Validate, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("Request body is empty")
		}
		return fmt.Errorf("Invalid request payload: %s", err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("Validation failed: %s", err.Error())
	}
	return nil
}
