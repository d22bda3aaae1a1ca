package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalink/entitlements/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NotNil(t, v)

	t.Run("tierkey accepts catalog tiers", func(t *testing.T) {
		type input struct {
			Tier string `binding:"tierkey"`
		}
		assert.NoError(t, v.Struct(input{Tier: "pro"}))
		assert.NoError(t, v.Struct(input{Tier: "free"}))
		assert.Error(t, v.Struct(input{Tier: "platinum"}))
		assert.Error(t, v.Struct(input{Tier: ""}))
	})
}

func TestFormatValidationErrors(t *testing.T) {
	type testStruct struct {
		Tier string `json:"tier" binding:"required,tierkey"`
		Days int    `json:"days" binding:"required,min=1"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req testStruct
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})

	t.Run("lists each failing field with its json name", func(t *testing.T) {
		body := strings.NewReader(`{"tier": "platinum", "days": 0}`)
		req := httptest.NewRequest(http.MethodPost, "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "tier")
		assert.Contains(t, fields, "days")
	})

	t.Run("valid input passes binding", func(t *testing.T) {
		body := strings.NewReader(`{"tier": "starter", "days": 7}`)
		req := httptest.NewRequest(http.MethodPost, "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type testStruct struct {
		Required string `binding:"required"`
		Min      int    `binding:"min=5"`
		OneOf    string `binding:"oneof=a b c"`
		UUID     string `binding:"uuid"`
	}

	SetupValidator()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	err := v.Struct(testStruct{Min: 1, OneOf: "d", UUID: "nope"})
	require.Error(t, err)

	messages := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.StructField()] = validationMessage(e)
	}

	assert.Equal(t, "This field is required", messages["Required"])
	assert.Equal(t, "Must be at least 5", messages["Min"])
	assert.Equal(t, "Must be one of: a b c", messages["OneOf"])
	assert.Equal(t, "Invalid UUID format", messages["UUID"])
}
