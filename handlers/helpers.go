package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type jsonResponse map[string]interface{}

var validate = validator.New(validator.WithRequiredStructEnabled())

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func idParam(r *http.Request, name string) (int, error) {
	return parsePositiveInt(chi.URLParam(r, name), name)
}

func parsePositiveInt(raw, name string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

// validateStruct turns validator violations into a field -> message map for
// the 422 envelope.
func validateStruct(dst interface{}) map[string]string {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(violations))
	for _, violation := range violations {
		fields[strings.ToLower(violation.Field())] = fmt.Sprintf("failed on the %q rule", violation.Tag())
	}
	return fields
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP translates engine errors into HTTP statuses.
// Transient concurrency conflicts surface as 409 so callers know to retry;
// state-machine violations are also 409 because the resource state, not the
// request shape, rejected them.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		notFoundResponse(w, r)

	case errors.Is(err, services.ErrGenerationInProgress),
		errors.Is(err, services.ErrConcurrentModification),
		errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrMatchAlreadyFinalized),
		errors.Is(err, services.ErrDisputeAlreadyOpen),
		errors.Is(err, services.ErrDisputeAlreadyClosed),
		errors.Is(err, services.ErrMatchNotDisputed):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrNotAParticipant):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrDrawNotAllowed),
		errors.Is(err, services.ErrWinnerNotInMatch),
		errors.Is(err, brackets.ErrInvalidParticipantCount),
		errors.Is(err, brackets.ErrUnsupportedFormat),
		errors.Is(err, brackets.ErrUnsupportedSeedingMethod),
		errors.Is(err, brackets.ErrIncompleteManualSeeding):
		badRequestResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}
