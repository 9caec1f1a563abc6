package captchasvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/academia/core"
)

type (
	recaptchaVerifier struct {
		client    *rest.Client
		secretKey string
		verifyURL string
	}

	// siteverify answer
	recaptchaResponse struct {
		Success    bool     `json:"success"`
		Hostname   string   `json:"hostname"`
		ErrorCodes []string `json:"error-codes"`
	}
)

var _ core.CaptchaVerifier = (*recaptchaVerifier)(nil)

// NewRecaptchaVerifier returns a CaptchaVerifier backed by Google reCAPTCHA's siteverify API.
func NewRecaptchaVerifier(conf *core.Config) core.CaptchaVerifier {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.Captcha.SecretKey, "conf.Captcha.SecretKey"),
		vala.StringNotEmpty(conf.Captcha.VerifyURL, "conf.Captcha.VerifyURL"),
	).CheckAndPanic()

	return &recaptchaVerifier{
		client:    &rest.Client{HTTPClient: &http.Client{Timeout: conf.Captcha.Timeout}},
		secretKey: conf.Captcha.SecretKey,
		verifyURL: conf.Captcha.VerifyURL,
	}
}

func (v *recaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return errors.Wrap(core.ErrCaptchaFailed, "missing token")
	}

	form := url.Values{
		"secret":   {v.secretKey},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	res, err := v.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: v.verifyURL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return errors.Wrapf(core.ErrCaptchaFailed, "unreachable: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		return errors.Wrapf(core.ErrCaptchaFailed, "status %d", res.StatusCode)
	}

	var answer recaptchaResponse
	if err = json.Unmarshal([]byte(res.Body), &answer); err != nil {
		return errors.Wrapf(core.ErrCaptchaFailed, "decoding answer: %v", err)
	}
	if !answer.Success {
		return errors.Wrapf(core.ErrCaptchaFailed, "rejected: %s", strings.Join(answer.ErrorCodes, ", "))
	}
	return nil
}

type noopVerifier struct{}

var _ core.CaptchaVerifier = (*noopVerifier)(nil)

// NewNoopVerifier returns a CaptchaVerifier accepting every token. Used when captcha is disabled.
func NewNoopVerifier() core.CaptchaVerifier {
	return &noopVerifier{}
}

func (*noopVerifier) Verify(context.Context, string, string) error { return nil }

// NewVerifier returns the reCAPTCHA verifier if captcha is enabled, the no-op one otherwise.
func NewVerifier(conf *core.Config) core.CaptchaVerifier {
	if conf.Captcha.Enabled {
		return NewRecaptchaVerifier(conf)
	}
	return NewNoopVerifier()
}
