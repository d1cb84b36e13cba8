package server

import (
	"context"

	"github.com/readmegen/readmegen/internal/readme"
)

type runnerFunc func(clientID string)

func (f runnerFunc) Run(_ context.Context, clientID, _ string) (*readme.Result, error) {
	f(clientID)
	return &readme.Result{Readme: "ok"}, nil
}
