package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/warehouse/internal/config"
)

func TestCaptchaServiceDisabled(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Enabled: false})
	if svc.Enabled() {
		t.Fatalf("captcha should be disabled")
	}
	if err := svc.Verify(CaptchaVerifyPayload{}); err != nil {
		t.Fatalf("disabled captcha should pass verify, got %v", err)
	}
	if _, err := svc.GenerateImageChallenge(); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("expected ErrCaptchaConfigInvalid, got %v", err)
	}
}

func TestCaptchaServiceVerify(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Enabled: true})
	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	if challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}

	cases := []struct {
		name    string
		payload CaptchaVerifyPayload
		want    error
	}{
		{name: "missing", payload: CaptchaVerifyPayload{}, want: ErrCaptchaRequired},
		{name: "wrong", payload: CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "not-a-code"}, want: ErrCaptchaInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Verify(tc.payload); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
