package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/accesstoken"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type inspection struct {
	Version    string          `yaml:"version" json:"version"`
	Compressed bool            `yaml:"compressed" json:"compressed"`
	AppID      string          `yaml:"app_id" json:"app_id"`
	IssuedAt   string          `yaml:"issued_at" json:"issued_at"`
	Expire     uint32          `yaml:"expire_seconds" json:"expire_seconds"`
	ExpiresAt  string          `yaml:"expires_at" json:"expires_at"`
	Salt       int32           `yaml:"salt" json:"salt"`
	Signature  string          `yaml:"signature" json:"signature"`
	Services   []serviceReport `yaml:"services" json:"services"`
}

type serviceReport struct {
	Type       uint16            `yaml:"type" json:"type"`
	Channel    string            `yaml:"channel,omitempty" json:"channel,omitempty"`
	Account    string            `yaml:"account" json:"account"`
	Privileges []privilegeReport `yaml:"privileges" json:"privileges"`
}

type privilegeReport struct {
	Name      string `yaml:"name" json:"name"`
	Expire    uint32 `yaml:"expire_seconds" json:"expire_seconds"`
	ExpiresAt string `yaml:"expires_at" json:"expires_at"`
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	var output string

	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return fmt.Errorf("inspect takes exactly one token argument")
	}

	p, err := accesstoken.Parse(strings.TrimSpace(rest[0]))
	if err != nil {
		return err
	}

	report := inspect(p)

	switch output {
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func inspect(p *accesstoken.Parsed) inspection {
	t := p.Token
	issued := time.Unix(int64(t.IssueTs), 0).UTC()

	report := inspection{
		Version:    p.Version,
		Compressed: p.Compressed,
		AppID:      t.AppID,
		IssuedAt:   issued.Format(time.RFC3339),
		Expire:     t.Expire,
		ExpiresAt:  issued.Add(time.Duration(t.Expire) * time.Second).Format(time.RFC3339),
		Salt:       t.Salt,
		Signature:  hex.EncodeToString(p.Signature),
	}

	for _, typ := range slices.Sorted(maps.Keys(t.Services)) {
		rtc, ok := t.Services[typ].(*accesstoken.ServiceRtc)
		if !ok {
			continue
		}

		svc := serviceReport{
			Type:    typ,
			Channel: rtc.ChannelName,
			Account: rtc.Account,
		}
		for _, priv := range slices.Sorted(maps.Keys(rtc.Privileges)) {
			expire := rtc.Privileges[priv]
			svc.Privileges = append(svc.Privileges, privilegeReport{
				Name:      accesstoken.Privilege(priv).String(),
				Expire:    expire,
				ExpiresAt: issued.Add(time.Duration(expire) * time.Second).Format(time.RFC3339),
			})
		}
		report.Services = append(report.Services, svc)
	}

	return report
}
