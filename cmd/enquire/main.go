package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"academy_site/internal/adapters/contactapi"
	"academy_site/internal/adapters/observability"
	"academy_site/internal/domain"
	"academy_site/internal/leadform"
)

const (
	exitHTTP       = 1
	exitValidation = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		api    string
		region string
		lead   domain.Lead
		typ    string
	)
	flagSet := pflag.NewFlagSet("enquire", pflag.ContinueOnError)
	flagSet.StringVar(&api, "api", "http://localhost:8080", "base URL of the site API")
	flagSet.StringVar(&lead.FullName, "name", "", "full name")
	flagSet.StringVar(&lead.Email, "email", "", "email address")
	flagSet.StringVar(&lead.Phone, "phone", "", "phone number, with +country prefix or national")
	flagSet.StringVar(&typ, "type", string(domain.LeadContact), "form type: contact or brochure")
	flagSet.StringVar(&lead.Interest, "interest", "", "course of interest")
	flagSet.StringVar(&lead.Message, "message", "", "free-form message")
	flagSet.StringVar(&region, "region", leadform.DefaultOptions.Region, "default phone region")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	lead.Type = domain.LeadType(typ)
	lead.Source = "cli"

	log.Logger = observability.NewLogger(os.Getenv("APP_ENV"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := contactapi.New(api, leadform.Options{Region: region})
	receipt, err := client.Submit(ctx, lead)

	var verr *contactapi.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, f := range verr.Fields.Fields() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f, verr.Fields[f])
		}
		return &exitError{code: exitValidation, err: errors.New("enquiry not sent, fix the fields above")}
	case err != nil:
		return &exitError{code: exitHTTP, err: err}
	}

	if receipt.Status == "duplicate" {
		fmt.Printf("We already have this enquiry (reference %d). Our team will be in touch.\n", receipt.ID)
		return nil
	}
	fmt.Printf("Thanks! Your enquiry was received (reference %d).\n", receipt.ID)
	return nil
}
