package viewset

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAsError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"explicit", NewError(http.StatusTeapot, "ERR_TEA", "tea"), http.StatusTeapot, "ERR_TEA"},
		{"wrapped explicit", fmt.Errorf("ctx: %w", NewError(http.StatusGone, "ERR_GONE", "gone")), http.StatusGone, "ERR_GONE"},
		{"not authenticated", permission.ErrNotAuthenticated, http.StatusUnauthorized, CodeUnauthorized},
		{"denied", permission.ErrPermissionDenied, http.StatusForbidden, CodeForbidden},
		{"pagination", &pagination.ParamError{Issues: []pagination.ParamIssue{{Param: "page", Message: "bad"}}}, http.StatusBadRequest, CodeInvalidQuery},
		{"syntax", json.Unmarshal([]byte("{"), &struct{}{}), http.StatusBadRequest, CodeInvalidJSON},
		{"not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound, CodeNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, http.StatusConflict, CodeAlreadyExists},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := AsError(tt.err)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestAsError_Details(t *testing.T) {
	e := AsError(&pagination.ParamError{Issues: []pagination.ParamIssue{{Param: "size", Message: "too big"}}})
	assert.Equal(t, []FieldError{{Field: "size", Message: "too big"}}, e.Details)

	err := json.Unmarshal([]byte(`{"n":"x"}`), &struct {
		N int `json:"n"`
	}{})
	e = AsError(err)
	require.Len(t, e.Details, 1)
	assert.Equal(t, "n", e.Details[0].Field)
}

func TestValidationDetails(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Code  string `validate:"min=3"`
		Count int    `validate:"max=5"`
		Kind  string `validate:"oneof=a b"`
		Mail  string `validate:"email"`
	}

	err := validator.New().Struct(input{Code: "x", Count: 9, Kind: "c", Mail: "nope"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	e := AsError(err)
	assert.Equal(t, CodeValidation, e.Code)
	assert.Equal(t, []FieldError{
		{Field: "Name", Message: "This field is required"},
		{Field: "Code", Message: "Must be at least 3 characters"},
		{Field: "Count", Message: "Must be at most 5"},
		{Field: "Kind", Message: "Must be one of: a b"},
		{Field: "Mail", Message: "Invalid email format"},
	}, e.Details)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	e := &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: "bad", Err: cause}

	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "bad: cause", e.Error())
	assert.Equal(t, "bad", NewError(400, CodeBadRequest, "bad").Error())
}
