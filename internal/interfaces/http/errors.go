package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/portfolio-status-api/internal/application/dto"
	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
	"github.com/jhoicas/portfolio-status-api/internal/domain"
	"github.com/jhoicas/portfolio-status-api/pkg/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Los mensajes usan el nombre JSON del campo.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parsea el cuerpo en dst y aplica las reglas validate. Si falla, ya escribió la respuesta 400
// y devuelve ok=false.
func bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		if fe.Param() != "" {
			parts = append(parts, field+": "+fe.Tag()+"="+fe.Param())
		} else {
			parts = append(parts, field+": "+fe.Tag())
		}
	}
	return strings.Join(parts, "; ")
}

// respondError traduce errores de dominio a HTTP. Los 5xx nunca exponen el detalle interno.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code, msg := fiber.StatusInternalServerError, "INTERNAL", "error interno"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code, msg = fiber.StatusBadRequest, "VALIDATION", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, msg = fiber.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrDuplicate):
		status, code, msg = fiber.StatusConflict, "DUPLICATE", err.Error()
	case errors.Is(err, domain.ErrInUse):
		status, code, msg = fiber.StatusConflict, "IN_USE", err.Error()
	case errors.Is(err, domain.ErrConflict):
		status, code, msg = fiber.StatusConflict, "CONFLICT", "el recurso cambió, intente de nuevo"
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnauthorized):
		status, code, msg = fiber.StatusUnauthorized, "UNAUTHORIZED", "credenciales inválidas"
	case errors.Is(err, domain.ErrForbidden):
		status, code, msg = fiber.StatusForbidden, "FORBIDDEN", "cuenta inactiva"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, code, msg = fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "almacén no disponible, intente más tarde"
	case errors.Is(err, portfolio.ErrExportDisabled):
		status, code, msg = fiber.StatusServiceUnavailable, "EXPORT_DISABLED", err.Error()
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Int("status", status).Msg("error en petición")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
