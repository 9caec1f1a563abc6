package core

import "context"

// CaptchaVerifier checks a captcha response token submitted along with a form.
// Verify returns an error wrapping ErrCaptchaFailed whenever the token cannot be positively verified.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}
