package harvester

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const loginSettle = 2 * time.Second

// TryLogin performs a best-effort credential sign-in before opening the
// target post. Any failure is logged and swallowed: the harvest proceeds
// anonymously and simply sees whatever the page serves without a session.
func TryLogin(ctx context.Context, surface Surface, loginURL, email, password string, logger *logrus.Logger) {
	if err := surface.Navigate(ctx, loginURL); err != nil {
		logger.Warnf("Failed to open login page: %v", err)
		return
	}

	if err := surface.Fill(ctx, "input#username", email); err != nil {
		logger.Debugf("Primary username field not usable, trying alternate: %v", err)
		if err := surface.Fill(ctx, "input[name='session_key']", email); err != nil {
			logger.Warnf("Could not fill username field: %v", err)
			return
		}
		if err := surface.Fill(ctx, "input[name='session_password']", password); err != nil {
			logger.Warnf("Could not fill password field: %v", err)
			return
		}
	} else if err := surface.Fill(ctx, "input#password", password); err != nil {
		logger.Warnf("Could not fill password field: %v", err)
		return
	}

	if err := surface.PressEnter(ctx); err != nil {
		logger.Warnf("Could not submit login form: %v", err)
		return
	}

	surface.Settle(ctx, loginSettle)

	if ok, err := surface.Exists(ctx, "header"); err == nil && ok {
		logger.Info("Login step completed (header found)")
	} else {
		logger.Warn("Login may have failed or took too long")
	}
}
