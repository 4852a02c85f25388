package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/operator"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard"
	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
)

// openFunc connects to the store; the returned func releases it.
type openFunc func(ctx context.Context) (*ratecard.Service, func(), error)

type app struct {
	open openFunc
	out  io.Writer
}

func newApp(open openFunc, out io.Writer) *cli.App {
	a := &app{open: open, out: out}
	return &cli.App{
		Name:      "ratecardctl",
		Usage:     "Review and approve rate card access requests",
		Writer:    out,
		ErrWriter: out,
		// exit codes are applied by main, not from inside the command
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List requests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Value: "all", Usage: "all, pending, approved, accessed or expired"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search name, phone, email or brand"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum rows"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
				Action: a.list,
			},
			{
				Name:   "stats",
				Usage:  "Show counts per status",
				Action: a.stats,
			},
			{
				Name:      "show",
				Usage:     "Show one request",
				ArgsUsage: "REQUEST_ID",
				Action:    a.show,
			},
			{
				Name:      "approve",
				Usage:     "Approve a pending request and print the message to send",
				ArgsUsage: "REQUEST_ID",
				Action:    a.approve,
			},
			{
				Name:      "message",
				Usage:     "Print the delivery message for an approved request",
				ArgsUsage: "REQUEST_ID",
				Action:    a.message,
			},
			{
				Name:      "delete",
				Usage:     "Delete a request",
				ArgsUsage: "REQUEST_ID",
				Action:    a.delete,
			},
			{
				Name:      "hash-password",
				Usage:     "Print a bcrypt hash for OPERATOR_PASSWORD_HASH",
				ArgsUsage: "PASSWORD",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cost", Value: 12, Usage: "bcrypt cost"},
				},
				Action: a.hashPassword,
			},
		},
	}
}

func (a *app) withService(c *cli.Context, fn func(*ratecard.Service) error) error {
	svc, closeFn, err := a.open(c.Context)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeFn()
	return fn(svc)
}

func requireID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("exactly one REQUEST_ID is required", 2)
	}
	return c.Args().First(), nil
}

func (a *app) list(c *cli.Context) error {
	return a.withService(c, func(svc *ratecard.Service) error {
		reqs, err := svc.List(c.Context, entity.Filter{
			Status: c.String("status"),
			Query:  c.String("query"),
			Limit:  c.Int("limit"),
		})
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return json.NewEncoder(a.out).Encode(reqs)
		}
		now := svc.Now()
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPHONE\tSTATUS\tACCESSED\tSUBMITTED")
		for _, r := range reqs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
				r.ID, r.FullName, r.PhoneNumber, r.Status(now), r.WasAccessed, r.SubmittedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	})
}

func (a *app) stats(c *cli.Context) error {
	return a.withService(c, func(svc *ratecard.Service) error {
		st, err := svc.Stats(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "total=%d pending=%d approved=%d accessed=%d expired=%d\n",
			st.Total, st.Pending, st.Approved, st.Accessed, st.Expired)
		return nil
	})
}

func (a *app) show(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	return a.withService(c, func(svc *ratecard.Service) error {
		req, err := svc.Get(c.Context, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(req)
	})
}

func (a *app) approve(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	return a.withService(c, func(svc *ratecard.Service) error {
		issued, err := svc.Approve(c.Context, id)
		if errors.Is(err, ratecard.ErrAlreadyApproved) {
			return cli.Exit("request is already approved; use `message` to resend the existing link", 1)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "approved %s, token expires %s\n", id, issued.ExpiresAt.Format(time.RFC3339))
		return a.printDelivery(c, svc, id)
	})
}

func (a *app) message(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	return a.withService(c, func(svc *ratecard.Service) error {
		return a.printDelivery(c, svc, id)
	})
}

func (a *app) printDelivery(c *cli.Context, svc *ratecard.Service, id string) error {
	req, err := svc.Get(c.Context, id)
	if err != nil {
		return err
	}
	d, err := svc.Delivery(req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%s\n\n%s\n", d.Message, d.WhatsAppURL)
	return nil
}

func (a *app) delete(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	return a.withService(c, func(svc *ratecard.Service) error {
		if err := svc.Delete(c.Context, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted %s\n", id)
		return nil
	})
}

func (a *app) hashPassword(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one PASSWORD is required", 2)
	}
	h, err := operator.BcryptHasher{Cost: c.Int("cost")}.Hash(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, h)
	return nil
}
