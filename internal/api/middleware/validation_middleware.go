package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ValidatedModelKey = "validated_model"
	ValidatedQueryKey = "validated_query"
)

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validator *validator.Validate
	log       *zap.Logger
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(log *zap.Logger) *ValidationMiddleware {
	v := validator.New()

	// Report json names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// Register custom validators
	_ = v.RegisterValidation("not_empty", validateNotEmpty)
	_ = v.RegisterValidation("valid_uuid", validateUUID)

	return &ValidationMiddleware{
		validator: v,
		log:       log,
	}
}

// Validator exposes the configured validator for handlers that bind by hand.
func (m *ValidationMiddleware) Validator() *validator.Validate {
	return m.validator
}

// ValidateRequest validates the request body against the provided struct
func (m *ValidationMiddleware) ValidateRequest(model interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelValue := newInstance(model)

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}
		// Restore the request body
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
			c.Abort()
			return
		}

		if err := json.Unmarshal(bodyBytes, modelValue); err != nil {
			m.log.Debug("JSON unmarshal failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON format"})
			c.Abort()
			return
		}

		if !m.validate(c, modelValue) {
			return
		}

		c.Set(ValidatedModelKey, modelValue)
		c.Next()
	}
}

// ValidateQuery validates query parameters against the provided struct
func (m *ValidationMiddleware) ValidateQuery(model interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelValue := newInstance(model)

		if err := c.ShouldBindQuery(modelValue); err != nil {
			m.log.Debug("Failed to bind query parameters",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
			c.Abort()
			return
		}

		if !m.validate(c, modelValue) {
			return
		}

		c.Set(ValidatedQueryKey, modelValue)
		c.Next()
	}
}

func (m *ValidationMiddleware) validate(c *gin.Context, modelValue interface{}) bool {
	err := m.validator.Struct(modelValue)
	if err == nil {
		return true
	}

	details := make(map[string]string)
	var fieldErrors validator.ValidationErrors
	if ok := asValidationErrors(err, &fieldErrors); ok {
		for _, fe := range fieldErrors {
			details[fe.Field()] = formatValidationError(fe)
		}
	}

	m.log.Debug("Validation failed",
		zap.Any("errors", details),
		zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": details,
	})
	c.Abort()
	return false
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func newInstance(model interface{}) interface{} {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	return reflect.New(modelType).Interface()
}

// Custom validators
func validateNotEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return len(strings.TrimSpace(value)) > 0
}

func validateUUID(fl validator.FieldLevel) bool {
	_, err := uuid.Parse(fl.Field().String())
	return err == nil
}

// Helper function to format validation errors
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "min", "gte":
		return "value is too small or too short"
	case "max", "lte":
		return "value is too large or too long"
	case "oneof":
		return "must be one of: " + err.Param()
	case "latitude":
		return "must be a latitude between -90 and 90"
	case "longitude":
		return "must be a longitude between -180 and 180"
	case "not_empty":
		return "this field cannot be empty"
	case "valid_uuid":
		return "invalid UUID format"
	default:
		return "invalid value"
	}
}
