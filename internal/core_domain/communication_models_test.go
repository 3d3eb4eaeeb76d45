package core_domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"FormattedInternational", "+1 (415) 555-0100", "+14155550100"},
		{"DigitsOnly", "0912 123 4567", "09121234567"},
		{"InnerPlusDropped", "98+912", "98912"},
		{"LeadingJunkThenPlus", " ab+98", "+98"},
		{"Empty", "", ""},
		{"NoDigits", "call me", ""},
		{"OnlyPlus", "+", "+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNumber(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeNumber(got), "normalization must be idempotent")
		})
	}
}

func TestParseAdapterAction(t *testing.T) {
	a, ok := ParseAdapterAction(" message ")
	assert.True(t, ok)
	assert.Equal(t, ActionMessage, a)

	_, ok = ParseAdapterAction("fax")
	assert.False(t, ok)
}

func TestCommunicationTarget_Accessors(t *testing.T) {
	target := CommunicationTarget{PhoneNumber: StringPtr("  +98912  "), EmailAddress: StringPtr(" ")}
	assert.Equal(t, "+98912", target.Phone())
	assert.Equal(t, "", target.Email())
	assert.False(t, target.HasMedia())
	assert.Nil(t, NonBlank(target.EmailAddress))
	assert.Equal(t, "x", *NonBlank(StringPtr(" x ")))
}

func TestIntentFailure_Unwrap(t *testing.T) {
	cause := errors.New("activity not found")
	var r IntentResult = IntentFailure{Message: "Telegram launch failed", Cause: cause}

	f, ok := r.(IntentFailure)
	assert.True(t, ok)
	assert.ErrorIs(t, f, cause)
	assert.Equal(t, "Telegram launch failed: activity not found", f.Error())
	assert.Equal(t, "failure", r.Status())
	assert.False(t, IsSuccess(r))
	assert.True(t, IsSuccess(IntentSuccess{}))
}
