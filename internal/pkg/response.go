package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/escola/internal/domain"
)

// Response is the JSON envelope of the API routes.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse is the JSON envelope for binding failures.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

const genericError = "erro interno, tente novamente"

// Success sends a 200 JSON response with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "ok", Data: data})
}

// Error sends err as a JSON envelope. The status follows the AppError code
// and internal messages are replaced by a generic one.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	c.JSON(status, Response{Code: status, Message: domain.UserMessage(err, genericError)})
}

// ValidationError sends a 400 with one message per invalid field.
func ValidationError(c *gin.Context, err error) {
	validationError(c, err, nil)
}

// BindAndValidate binds the request into obj and validates it. On failure
// it writes the 400 response and returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationError(c, err, obj)
		return false
	}
	return true
}

// FieldMessages turns validator errors into field → message pairs keyed by
// the form or json tag of obj's fields. Non-validator errors yield nil.
func FieldMessages(err error, obj any) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	tags := tagNames(obj)
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		name, ok := tags[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		out[name] = tagMessage(fe)
	}
	return out
}

func validationError(c *gin.Context, err error, obj any) {
	fields := FieldMessages(err, obj)
	if fields == nil {
		c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: "requisição inválida"})
		return
	}
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "dados inválidos",
		Errors:  fields,
	})
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "e-mail inválido"
	case "min":
		return "mínimo de " + fe.Param() + " caracteres"
	case "max":
		return "máximo de " + fe.Param() + " caracteres"
	default:
		if fe.Param() != "" {
			return fe.Tag() + "=" + fe.Param()
		}
		return fe.Tag()
	}
}

// tagNames maps struct field names to their form tag, falling back to the
// json tag.
func tagNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, key := range []string{"form", "json"} {
			if name := tagName(f.Tag.Get(key)); name != "" {
				m[f.Name] = name
				break
			}
		}
	}
	return m
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
