package auth

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"
)

const testBotToken = "123456:test-bot-token"

// buildInitData produces a correctly signed init data payload.
func buildInitData(t *testing.T, v *InitDataValidator, user string, authDate time.Time) string {
	t.Helper()

	params := url.Values{}
	params.Set("user", user)
	params.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	params.Set("query_id", "AAE1")
	params.Set("hash", v.Sign(params))
	return params.Encode()
}

func TestInitDataValidator_Valid(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 24*time.Hour)
	initData := buildInitData(t, v, `{"id":99,"first_name":"Aziz","username":"aziz_tashkent"}`, time.Now())

	user, err := v.Validate(initData, time.Now())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.ID != 99 {
		t.Errorf("Expected user id 99, got %d", user.ID)
	}
	if user.Username != "aziz_tashkent" {
		t.Errorf("Expected username 'aziz_tashkent', got %q", user.Username)
	}
}

func TestInitDataValidator_TamperedPayload(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)
	initData := buildInitData(t, v, `{"id":99,"first_name":"Aziz"}`, time.Now())

	params, _ := url.ParseQuery(initData)
	params.Set("user", `{"id":100,"first_name":"Mallory"}`)

	if _, err := v.Validate(params.Encode(), time.Now()); !errors.Is(err, ErrInvalidInitData) {
		t.Errorf("Expected ErrInvalidInitData for tampered payload, got %v", err)
	}
}

func TestInitDataValidator_WrongBotToken(t *testing.T) {
	signer := NewInitDataValidator("999:other-bot", 0)
	v := NewInitDataValidator(testBotToken, 0)
	initData := buildInitData(t, signer, `{"id":99,"first_name":"Aziz"}`, time.Now())

	if _, err := v.Validate(initData, time.Now()); !errors.Is(err, ErrInvalidInitData) {
		t.Errorf("Expected ErrInvalidInitData for foreign signature, got %v", err)
	}
}

func TestInitDataValidator_MissingHash(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)

	params := url.Values{}
	params.Set("user", `{"id":99}`)

	if _, err := v.Validate(params.Encode(), time.Now()); !errors.Is(err, ErrInvalidInitData) {
		t.Errorf("Expected ErrInvalidInitData without hash, got %v", err)
	}
}

func TestInitDataValidator_StaleAuthDate(t *testing.T) {
	v := NewInitDataValidator(testBotToken, time.Hour)
	initData := buildInitData(t, v, `{"id":99,"first_name":"Aziz"}`, time.Now().Add(-2*time.Hour))

	if _, err := v.Validate(initData, time.Now()); !errors.Is(err, ErrStaleInitData) {
		t.Errorf("Expected ErrStaleInitData, got %v", err)
	}
}

func TestInitDataValidator_ZeroMaxAgeSkipsFreshness(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)
	initData := buildInitData(t, v, `{"id":99,"first_name":"Aziz"}`, time.Now().Add(-48*time.Hour))

	if _, err := v.Validate(initData, time.Now()); err != nil {
		t.Errorf("Expected old payload accepted with no max age, got %v", err)
	}
}
