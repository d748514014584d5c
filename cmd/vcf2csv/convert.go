package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/JonMunkholm/vcf2csv/internal/config"
	"github.com/JonMunkholm/vcf2csv/internal/convert"
	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/logging"
	"github.com/JonMunkholm/vcf2csv/internal/store"
)

var errStoreDisabled = errors.New("--store needs DATABASE_URL to be set")

type convertCmd struct {
	Contacts    string    `arg:"" help:"vCard file to convert, or - for stdin."`
	Fields      fieldList `short:"f" placeholder:"FIELD" help:"Columns to write, in order: space separated, comma separated or repeated (default: ${fields}). Valid: ${valid_fields}."`
	SkipCountry string    `default:"${skip_country}" help:"Country left blank in the output (home country)."`
	Store       bool      `help:"Also save the records to PostgreSQL (DATABASE_URL)."`

	defaultFields []string
	fields        []core.Field
}

// fieldList collects --fields values. "--fields name city" takes every value
// token that follows the flag; "--fields=name" takes exactly one.
type fieldList []string

func (l *fieldList) Decode(ctx *kong.DecodeContext) error {
	first := ctx.Scan.Pop()
	if first.IsEOL() {
		return errors.New("missing value, expecting FIELD")
	}
	*l = append(*l, first.String())
	if first.Type == kong.FlagValueToken {
		return nil
	}
	for _, t := range ctx.Scan.PopWhile(func(t kong.Token) bool { return t.IsValue() }) {
		*l = append(*l, t.String())
	}
	return nil
}

// Validate runs during parsing so a bad column is a usage error.
func (c *convertCmd) Validate() error {
	values := []string(c.Fields)
	if len(values) == 0 {
		values = c.defaultFields
	}
	fields, err := core.ParseFields(values)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields selected", core.ErrUnknownField)
	}
	c.fields = fields
	return nil
}

func (c *convertCmd) Run(e *env) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, closeInput, err := c.open(e.stdin)
	if err != nil {
		return err
	}
	defer closeInput()

	var st *store.Store
	if c.Store {
		var closeStore func()
		st, closeStore, err = openStore(ctx, e.cfg.Database)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	out := bufio.NewWriter(e.stdout)
	res, err := convert.Run(ctx, in, out, convert.Options{
		Fields:      c.fields,
		SkipCountry: c.SkipCountry,
	})
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	if st != nil {
		ctx = logging.WithRunID(ctx, res.RunID.String())
		if _, err := st.Save(ctx, res.RunID, res.Records); err != nil {
			return err
		}
	}
	return nil
}

func (c *convertCmd) open(stdin io.Reader) (io.Reader, func(), error) {
	if c.Contacts == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(c.Contacts)
	if err != nil {
		return nil, nil, fmt.Errorf("open contacts: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// openStore connects to the configured database and prepares the table.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store.Store, func(), error) {
	if !cfg.StoreEnabled() {
		return nil, nil, errStoreDisabled
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := store.Connect(connectCtx, cfg.URL, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}
