package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
	"github.com/spf13/pflag"
)

type mintParams struct {
	appID    string
	appCert  string
	channel  string
	uid      uint32
	account  string
	role     string
	ttl      time.Duration
	deadline string
}

func runMint(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	var p mintParams

	flagSet := pflag.NewFlagSet("mint", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&p.appID, "app-id", "", "app id (default $AGORA_APP_ID)")
	flagSet.StringVar(&p.appCert, "app-cert", "", "app certificate (default $AGORA_APP_CERTIFICATE)")
	flagSet.StringVarP(&p.channel, "channel", "c", "", "channel name (required)")
	flagSet.Uint32VarP(&p.uid, "uid", "u", 0, "numeric user id; 0 allows any user")
	flagSet.StringVarP(&p.account, "account", "a", "", "string user account (excludes --uid)")
	flagSet.StringVarP(&p.role, "role", "r", "publisher", "attendee, publisher, subscriber or admin")
	flagSet.DurationVar(&p.ttl, "ttl", 24*time.Hour, "token and privilege lifetime")
	flagSet.StringVar(&p.deadline, "deadline", "", "absolute expiry as RFC 3339 (overrides --ttl)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if p.appID == "" {
		p.appID = getenv("AGORA_APP_ID")
	}
	if p.appCert == "" {
		p.appCert = getenv("AGORA_APP_CERTIFICATE")
	}

	if p.account != "" && p.uid != 0 {
		return fmt.Errorf("--uid and --account are mutually exclusive")
	}

	token, err := mint(p, rtctoken.NewBuilder(slog.New(slog.NewTextHandler(stderr, nil))))
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, token)

	return nil
}

func mint(p mintParams, b *rtctoken.Builder) (string, error) {
	if p.channel == "" {
		return "", apperrors.ErrMissingChannel
	}

	role, err := rtctoken.ParseRole(p.role)
	if err != nil {
		return "", err
	}

	account := p.account
	if account == "" {
		account = rtctoken.UIDString(p.uid)
	}

	if p.deadline != "" {
		deadline, err := time.Parse(time.RFC3339, p.deadline)
		if err != nil {
			return "", fmt.Errorf("parsing --deadline: %w", err)
		}
		return b.BuildTokenWithAccountDeadline(p.appID, p.appCert, p.channel, account, role, deadline)
	}

	expire := rtctoken.ExpireSeconds(p.ttl)

	return b.BuildTokenWithAccount(p.appID, p.appCert, p.channel, account, role, expire, expire)
}
