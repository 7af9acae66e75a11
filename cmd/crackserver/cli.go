package main

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/ykhdr/crackserver/config"
	"github.com/ykhdr/crackserver/internal/dictionary"
	"github.com/ykhdr/crackserver/internal/dispatcher"
)

const (
	exitOK = iota
	exitUsage
	exitDictionaryOpen
	exitDictionaryEmpty
	exitListen
)

const usage = "Usage: crackserver [--maxconn connections] [--port portnum] [--dictionary filename]"

type CLI struct {
	Config     string     `help:"Path to a KDL config file." placeholder:"PATH" type:"path"`
	MaxConn    intFlag    `name:"maxconn" help:"Maximum number of simultaneous connections (0 is unlimited)." placeholder:"N"`
	Port       intFlag    `help:"TCP port to listen on (0 picks a free port)." placeholder:"PORT"`
	Dictionary stringFlag `help:"Word list to crack against." placeholder:"FILE"`
}

// intFlag remembers whether it was given, so any explicit value reaches
// validation. Each flag may appear once.
type intFlag struct {
	value int
	set   bool
}

func (f *intFlag) Decode(ctx *kong.DecodeContext) error {
	raw, err := popOnce(ctx, f.set)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return errors.Errorf("--%s: %q is not an integer", ctx.Value.Name, raw)
	}
	f.value, f.set = n, true
	return nil
}

type stringFlag struct {
	value string
	set   bool
}

func (f *stringFlag) Decode(ctx *kong.DecodeContext) error {
	raw, err := popOnce(ctx, f.set)
	if err != nil {
		return err
	}
	f.value, f.set = raw, true
	return nil
}

func popOnce(ctx *kong.DecodeContext, seen bool) (string, error) {
	if seen {
		return "", errors.Errorf("--%s given more than once", ctx.Value.Name)
	}
	var raw string
	if err := ctx.Scan.PopValueInto(ctx.Value.Name, &raw); err != nil {
		return "", err
	}
	return raw, nil
}

func parseCLI(args []string) (*CLI, error) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("crackserver"),
		kong.Description("Serves crypt and crack requests over a line-based TCP protocol."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build cli parser")
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, errors.Wrapf(config.ErrInvalid, "%v", err)
	}
	return &cli, nil
}

// apply layers explicitly given flags over cfg.
func (c *CLI) apply(cfg *config.CrackServerConfig) {
	if c.Port.set {
		cfg.Port = c.Port.value
	}
	if c.MaxConn.set {
		cfg.MaxConnections = c.MaxConn.value
	}
	if c.Dictionary.set {
		cfg.Dictionary = c.Dictionary.value
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, dictionary.ErrOpen):
		return exitDictionaryOpen
	case errors.Is(err, dictionary.ErrEmpty):
		return exitDictionaryEmpty
	case errors.Is(err, dispatcher.ErrListen):
		return exitListen
	default:
		return exitUsage
	}
}

// startupMessage is the single stderr line reported for a startup failure.
func startupMessage(err error, cfg *config.CrackServerConfig) string {
	switch exitCode(err) {
	case exitDictionaryOpen:
		return fmt.Sprintf("crackserver: %s %q", dictionary.ErrOpen, cfg.Dictionary)
	case exitDictionaryEmpty:
		return fmt.Sprintf("crackserver: %s", dictionary.ErrEmpty)
	case exitListen:
		return fmt.Sprintf("crackserver: %s", dispatcher.ErrListen)
	default:
		return usage
	}
}
