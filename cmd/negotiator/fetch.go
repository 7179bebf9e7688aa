package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"metadata-negotiator/internal/accepttypes"
	"metadata-negotiator/internal/app"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/processor"
	"metadata-negotiator/internal/utils"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errUnknownAcceptType = errors.New("unknown accept type")

type fetchOptions struct {
	acceptType  string
	metricLabel string
	extraAccept string
	token       string
	scheme      string
	keepHTML    bool
}

func newFetchCommand() *cobra.Command {
	opts := fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Negotiate one URL and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args[0])
			if err != nil {
				return err
			}

			logger, n, release := app.InitNegotiator()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := release(ctx); err != nil {
					logger.Warnw("Failed to release negotiation session", "err", err)
				}
			}()

			return printResult(cmd.OutOrStdout(), req, n.Negotiate(cmd.Context(), req))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.acceptType, "accept", "a", string(accepttypes.Default), "accept type to negotiate, see accept-types")
	flags.StringVarP(&opts.metricLabel, "metric", "m", "cli", "label attached to log lines of this negotiation")
	flags.StringVar(&opts.extraAccept, "extra-accept", "", "media type put in front of the accept type's Accept header")
	flags.StringVar(&opts.token, "token", "", "credential sent in the Authorization header")
	flags.StringVar(&opts.scheme, "scheme", config.AuthSchemeBearer, "authorization scheme, Bearer or Basic")
	flags.BoolVar(&opts.keepHTML, "keep-html", false, "keep HTML bodies in the result")

	return cmd
}

func (o fetchOptions) request(target string) (*config.Request, error) {
	at, ok := accepttypes.Lookup(o.acceptType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownAcceptType, o.acceptType)
	}

	req := config.NewRequest(utils.CorrectURLScheme(strings.TrimSpace(target)), at, o.metricLabel)
	req.ExtraAccept = o.extraAccept
	req.IgnoreHTML = !o.keepHTML
	if o.token != "" {
		req.Auth = &config.Auth{Token: o.token, Scheme: o.scheme}
	}

	return req, nil
}

func printResult(w io.Writer, req *config.Request, res *data.NegotiationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(processor.NewResultMessage(req, res))
}
