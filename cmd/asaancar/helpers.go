package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"asaancar/internal/api"
	"asaancar/internal/config"
	"asaancar/internal/obs"
	"asaancar/internal/session"
	"asaancar/internal/storage/sqlite"
)

// app bundles everything a command needs for one invocation.
type app struct {
	cfg    config.Config
	file   config.File
	sess   session.Session
	client *api.Client
	logger *slog.Logger
}

var errNotSignedIn = errors.New("not signed in; run 'asaancar login' first")

// loadApp builds the per-invocation wiring: env config merged with the
// persisted file, the saved session, and an API client bound to both.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	file, err := config.ReadFile()
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(file)

	sess := session.Session{
		Token:    session.Token(file.Auth.Token),
		UserID:   file.Auth.UserID,
		UserName: file.Auth.UserName,
	}
	logger := obs.NewLogger(cfg.Env, verbose)
	return &app{
		cfg:    cfg,
		file:   file,
		sess:   sess,
		client: api.NewClient(cfg, sess, logger),
		logger: logger,
	}, nil
}

// loadAuthedApp is loadApp plus a signed-in session requirement.
func loadAuthedApp() (*app, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	if !a.sess.Authenticated() {
		return nil, errNotSignedIn
	}
	return a, nil
}

// saveSession persists the session into the config file.
func (a *app) saveSession(sess session.Session) error {
	a.file.Auth.Token = string(sess.Token)
	a.file.Auth.UserID = sess.UserID
	a.file.Auth.UserName = sess.UserName
	return config.WriteFile(a.file)
}

// localStore opens the on-disk sqlite store under the config directory.
func (a *app) localStore() (*sqlite.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(filepath.Join(dir, "asaancar.db"))
}

func formatPrice(amount int64) string {
	return fmt.Sprintf("PKR %d", amount)
}
