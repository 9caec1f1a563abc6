package captchasvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

func TestRecaptchaVerifier_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("secret") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.PostForm.Get("response") {
		case "good":
			if r.PostForm.Get("remoteip") != "10.0.0.1" {
				_, _ = w.Write([]byte(`{"success": false, "error-codes": ["bad-remoteip"]}`))
				return
			}
			_, _ = w.Write([]byte(`{"success": true, "hostname": "academia.test"}`))
		case "garbage":
			_, _ = w.Write([]byte(`lol`))
		default:
			_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
		}
	}))
	defer srv.Close()

	newConf := func(url string) *core.Config {
		return &core.Config{Captcha: core.CaptchaConfig{
			Enabled: true, SecretKey: "secret", VerifyURL: url, Timeout: time.Second,
		}}
	}
	verifier := NewVerifier(newConf(srv.URL))
	unreachable := NewVerifier(newConf("http://127.0.0.1:1/siteverify"))

	tests := []struct {
		name     string
		verifier core.CaptchaVerifier
		token    string
		wantErr  bool
	}{
		{name: "missing token", verifier: verifier, wantErr: true},
		{name: "rejected token", verifier: verifier, token: "bad", wantErr: true},
		{name: "garbage answer", verifier: verifier, token: "garbage", wantErr: true},
		{name: "unreachable service", verifier: unreachable, token: "good", wantErr: true},
		{name: "valid token", verifier: verifier, token: "good"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verifier.Verify(context.Background(), tt.token, "10.0.0.1")
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Verify() error = %v; want nil", err)
				}
				return
			}
			if errors.Cause(err) != core.ErrCaptchaFailed {
				t.Errorf("Verify() error = %v; want %v", err, core.ErrCaptchaFailed)
			}
		})
	}
}

func TestNewVerifier_disabled(t *testing.T) {
	v := NewVerifier(&core.Config{})
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("vala.IsNotNil(verifier) panicked: %v", r)
			}
		}()
		vala.BeginValidation().Validate(vala.IsNotNil(v, "verifier")).CheckAndPanic()
	}()
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Errorf("Verify() error = %v; want nil", err)
	}
}
