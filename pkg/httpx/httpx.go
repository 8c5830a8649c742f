package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

// UserHeader carries the caller identity established by the auth gateway.
const UserHeader = "X-User-ID"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func StatusOf(class apperr.Class) int {
	switch class {
	case apperr.ClassValidation:
		return http.StatusBadRequest
	case apperr.ClassBusiness:
		return http.StatusUnprocessableEntity
	case apperr.ClassConflict:
		return http.StatusConflict
	case apperr.ClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps err to a status and a reason the caller can act on.
// Internal errors are logged and never echoed.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	class := apperr.Classify(err)
	msg := err.Error()
	if class == apperr.ClassInternal {
		log.Error("request failed", "err", err)
		msg = "internal error"
	}
	WriteJSON(w, StatusOf(class), ErrorResponse{Error: string(class), Message: msg})
}

// Decode reads a JSON body into dst and runs its `validate` tags.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validationf("invalid body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fe.Field()+" failed "+fe.Tag())
			}
			return apperr.Validation("invalid body: " + strings.Join(parts, ", "))
		}
		return apperr.Validationf("invalid body: %v", err)
	}
	return nil
}

type userKey struct{}

// RequireUser rejects requests without an identity and stores it in the context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(UserHeader))
		if uid == "" {
			WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHENTICATED", Message: "missing " + UserHeader})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, uid)))
	})
}

func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userKey{}).(string)
	return uid
}

// Page reads limit/offset query parameters, clamped to sane bounds.
func Page(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
