package handlers

import (
	"context"
	"fmt"
	"strings"
)

// CredentialCheck fails while a required secret is missing.
func CredentialCheck(name string, value func() string) HealthChecker {
	return HealthCheckerFunc(func(context.Context) error {
		if strings.TrimSpace(value()) == "" {
			return fmt.Errorf("%s is not configured", name)
		}
		return nil
	})
}

// ReadyCheck fails until ready reports true.
func ReadyCheck(what string, ready func() bool) HealthChecker {
	return HealthCheckerFunc(func(context.Context) error {
		if !ready() {
			return fmt.Errorf("%s not initialized", what)
		}
		return nil
	})
}
