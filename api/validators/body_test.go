package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
)

type statusBody struct {
	Status   enums.PaymentStatus         `json:"status" validate:"required,enum"`
	Priority *enums.NotificationPriority `json:"priority" validate:"omitempty,enum"`
	Note     string                      `json:"note" validate:"max=5"`
}

func decode(t *testing.T, body string) (statusBody, error) {
	t.Helper()
	var dest statusBody
	r := httptest.NewRequest(http.MethodPatch, "/payments/x/status", strings.NewReader(body))
	return dest, DecodeJSONBody(r, &dest)
}

func TestDecodeJSONBodyAcceptsKnownEnums(t *testing.T) {
	got, err := decode(t, `{"status":"CANCELLED","priority":"URGENT"}`)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, got.Status)
	require.NotNil(t, got.Priority)
	assert.Equal(t, enums.NotificationPriorityUrgent, *got.Priority)
}

func TestDecodeJSONBodyRejectsUnknownEnum(t *testing.T) {
	_, err := decode(t, `{"status":"ARCHIVED"}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details["status"], "ARCHIVED")

	_, err = decode(t, `{"status":"PENDING","priority":"CRITICAL"}`)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	details, _ = typed.Details().(map[string]string)
	assert.Contains(t, details, "priority")
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty":         {body: ``, message: "request body is required"},
		"unknown field": {body: `{"status":"PENDING","extra":1}`, message: "invalid request body"},
		"too long":      {body: `{"status":"PENDING","note":"demasiado"}`, message: "validation failed"},
		"too large":     {body: `{"note":"` + strings.Repeat("a", maxBodyBytes) + `"}`, message: "request body too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, tc.body)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tc.message, typed.Message())
		})
	}
}
