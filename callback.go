package goGuard

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/MrEthical07/goGuard/identity"
)

const (
	// CallbackErrorParam carries the failure code on the login redirect.
	CallbackErrorParam = "error"

	callbackErrorSignInFailed       = "sign_in_failed"
	callbackErrorSessionUnavailable = "session_unavailable"
	maxCallbackErrorLen             = 64
)

// CallbackOutcome classifies a sign-in callback.
type CallbackOutcome uint8

const (
	// CallbackSignedIn means the identity was fetched.
	CallbackSignedIn CallbackOutcome = iota
	// CallbackFailed means the provider or the identity fetch reported failure.
	CallbackFailed
	// CallbackMissing means the callback carried neither success nor error.
	CallbackMissing
)

func (o CallbackOutcome) String() string {
	switch o {
	case CallbackSignedIn:
		return "signed_in"
	case CallbackFailed:
		return "failed"
	case CallbackMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// CallbackResult tells the caller where to send the user next.
type CallbackResult struct {
	Outcome  CallbackOutcome
	Location string
	// Identity is set for CallbackSignedIn.
	Identity *identity.Identity
	// ErrorCode is the sanitized failure code for CallbackFailed.
	ErrorCode string
}

// HandleCallback processes the query of the sign-in callback path.
//
//	success=true          fetch identity, go to from= or home
//	success=false/error=  tear down, go to login with error=<code>
//	neither               go to login
//
// An error parameter wins over success=true.
func (e *Engine) HandleCallback(ctx context.Context, query url.Values) CallbackResult {
	errCode := query.Get("error")
	success := query.Get("success")

	switch {
	case errCode != "" || success == "false":
		e.metrics.Inc(MetricCallbackFailure)
		e.Teardown(ctx)
		code := sanitizeErrorCode(errCode)
		e.logger.InfoContext(ctx, "sign-in callback failed", slog.String("error_code", code))
		return CallbackResult{
			Outcome:   CallbackFailed,
			Location:  e.loginLocation(code),
			ErrorCode: code,
		}

	case success == "true":
		id, err := e.Refresh(ctx)
		if err != nil {
			e.metrics.Inc(MetricCallbackFailure)
			e.logger.WarnContext(ctx, "sign-in callback could not load identity", slog.Any("error", err))
			return CallbackResult{
				Outcome:   CallbackFailed,
				Location:  e.loginLocation(callbackErrorSessionUnavailable),
				ErrorCode: callbackErrorSessionUnavailable,
			}
		}
		e.metrics.Inc(MetricCallbackSuccess)
		return CallbackResult{
			Outcome:  CallbackSignedIn,
			Location: e.rules.ReturnTarget(query.Get("from")),
			Identity: id,
		}

	default:
		return CallbackResult{
			Outcome:  CallbackMissing,
			Location: e.loginLocation(""),
		}
	}
}

func (e *Engine) loginLocation(code string) string {
	login := e.config.Routes.LoginPath
	if code == "" {
		return login
	}
	q := url.Values{}
	q.Set(CallbackErrorParam, code)
	return login + "?" + q.Encode()
}

// sanitizeErrorCode keeps provider error codes that look like identifiers.
func sanitizeErrorCode(code string) string {
	if code == "" || len(code) > maxCallbackErrorLen {
		return callbackErrorSignInFailed
	}
	valid := strings.IndexFunc(code, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' || r == '.')
	}) == -1
	if !valid {
		return callbackErrorSignInFailed
	}
	return code
}
