package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/client"
	"github.com/MrEthical07/goGuard/gate"
	"github.com/MrEthical07/goGuard/identity"
)

var errAccessDenied = errors.New("access requires a prompt")

type whoamiOptions struct {
	identityURL  string
	email        string
	password     string
	oauthHint    string
	from         string
	requireRoles []string
	logout       bool
}

type whoamiResult struct {
	Authenticated bool               `json:"authenticated"`
	Identity      *identity.Identity `json:"identity"`
	Location      string             `json:"location,omitempty"`
	Gate          string             `json:"gate,omitempty"`
}

func whoamiCmd(root *rootOptions) *cobra.Command {
	opts := &whoamiOptions{}

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Bootstrap a session and print the signed-in identity",
		Long: `Whoami runs the client session flow against an identity service: bootstrap,
optional credential or third-party sign-in, optional role check through a
protected action gate, and optional logout. The identity is printed as JSON;
gate prompts are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(root.configPath)
			if err != nil {
				return err
			}
			if opts.identityURL != "" {
				s.engine.Identity.BaseURL = opts.identityURL
			}
			if s.engine.Identity.BaseURL == "" {
				return errors.New("identity service URL is required (--identity-url or config)")
			}
			logger := newLogger(cmd.ErrOrStderr(), root.logLevel, root.logFormat)

			engine, cleanup, err := buildEngine(s, logger, gate.NewJSONWriterSink(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer cleanup()

			return runWhoami(cmd.Context(), engine, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.identityURL, "identity-url", "", "Identity service base URL")
	f.StringVar(&opts.email, "email", "", "Sign in with this email")
	f.StringVar(&opts.password, "password", "", "Password for --email")
	f.StringVar(&opts.oauthHint, "oauth-hint", "", "Sign in through the third-party flow as this user")
	f.StringVar(&opts.from, "from", "", "Return path carried through the third-party flow")
	f.StringSliceVar(&opts.requireRoles, "require-role", nil, "Check the identity through a gate requiring one of these roles")
	f.BoolVar(&opts.logout, "logout", false, "Log out after printing")
	return cmd
}

func runWhoami(ctx context.Context, engine *goGuard.Engine, opts *whoamiOptions, out io.Writer) error {
	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	var res whoamiResult

	switch {
	case opts.email != "":
		if _, err := engine.Login(ctx, client.Credentials{Email: opts.email, Password: opts.password}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	case opts.oauthHint != "":
		query, err := authorize(ctx, engine, opts.oauthHint, opts.from)
		if err != nil {
			return fmt.Errorf("authorize: %w", err)
		}
		cb := engine.HandleCallback(ctx, query)
		res.Location = cb.Location
		if cb.Outcome != goGuard.CallbackSignedIn {
			return fmt.Errorf("sign-in callback %s: %s", cb.Outcome, cb.ErrorCode)
		}
	}

	var gateErr error
	if len(opts.requireRoles) > 0 {
		res.Gate, gateErr = checkRoles(ctx, engine, opts.requireRoles)
	}

	res.Identity = engine.Identity()
	res.Authenticated = res.Identity != nil

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if opts.logout && engine.HasSession() {
		if err := engine.Logout(ctx); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	return gateErr
}

// authorize follows the identity service's third-party sign-in up to the redirect back
// to the callback path and returns the callback query.
func authorize(ctx context.Context, engine *goGuard.Engine, loginHint, from string) (url.Values, error) {
	c := engine.Client()
	if c == nil {
		return nil, goGuard.ErrIdentityServiceUnset
	}

	callback := "/auth/callback"
	if from != "" {
		callback += "?" + url.Values{"from": {from}}.Encode()
	}
	u := c.BaseURL().JoinPath("/oauth/authorize")
	u.RawQuery = url.Values{"login_hint": {loginHint}, "redirect_uri": {callback}}.Encode()

	hc := engine.APIClient()
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return nil, err
	}
	return loc.Query(), nil
}

// checkRoles runs a no-op through a gate that requires any of roles. A prompt means
// the identity would not be allowed.
func checkRoles(ctx context.Context, engine *goGuard.Engine, roles []string) (string, error) {
	g, err := engine.NewGate("whoami", gate.Request{
		RequireAuthentication: true,
		RequiredRoles:         roles,
		Action:                "whoami",
	})
	if err != nil {
		return "", err
	}
	defer g.Release()

	outcome, err := g.Invoke(ctx, func(context.Context) error { return nil })
	if err != nil {
		return "", err
	}
	if outcome != gate.Executed {
		return outcome.String(), errAccessDenied
	}
	return outcome.String(), nil
}
