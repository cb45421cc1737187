package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joao-fontenele/courseshop/internal/client"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/orders"
)

var (
	errUsage       = errors.New("usage")
	errNotSignedIn = errors.New("not signed in, run shopctl login")
	errNotAdmin    = errors.New("signed in user is not an admin")
)

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	}

	if err := a.requireAdmin(ctx); err != nil {
		return err
	}

	switch cmd {
	case "orders":
		return a.orders(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "confirm", "reject", "cancel":
		return a.transition(ctx, cmd, args)
	case "bulk":
		return a.bulk(ctx, args)
	case "analyze":
		return a.analyze(ctx, args)
	}
	return errUsage
}

func (a *app) requireAdmin(ctx context.Context) error {
	u, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return errNotSignedIn
	}
	if !u.IsAdmin() {
		return errNotAdmin
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SHOPCTL_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil || *email == "" {
		return errUsage
	}

	u, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if !u.IsAdmin() {
		a.logger.Warn("signed in without admin role", "email", u.Email)
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", u.Name, u.Role)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	u, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return errNotSignedIn
	}
	fmt.Fprintf(a.out, "%s <%s> %s\n", u.Name, u.Email, u.Role)
	return nil
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "", "order status")
	payment := fs.String("payment", "", "payment status")
	orderType := fs.String("type", "", "order type")
	search := fs.String("search", "", "match id, customer or title")
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	f := client.ConsoleFilter{Search: *search, Page: client.PageRequest{Page: *page, PageSize: *size}}
	if *status != "" {
		st, err := domain.ParseOrderStatus(*status)
		if err != nil {
			return err
		}
		f.Status = st
	}
	if *payment != "" {
		st, err := domain.ParsePaymentStatus(*payment)
		if err != nil {
			return err
		}
		f.PaymentStatus = st
	}
	if *orderType != "" {
		t, err := domain.ParseOrderType(*orderType)
		if err != nil {
			return err
		}
		f.OrderType = t
	}

	a.console.SetFilter(f)
	if err := a.console.Refresh(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tCUSTOMER\tTOTAL\tSTATUS\tPAYMENT\tSLIP")
	for _, o := range a.console.Rows() {
		slip := "-"
		if o.HasSlip {
			slip = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.OrderType, o.ItemTitle, o.CustomerEmail, o.Total, o.Status, o.PaymentStatus, slip)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if p := a.console.Pagination(); p != nil {
		fmt.Fprintf(a.out, "page %d of %d, %d orders\n", p.Page, p.TotalPages, p.TotalCount)
	}
	return nil
}

func orderID(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := orderID(flag.NewFlagSet("show", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	d, err := a.console.Detail(ctx, id)
	if err != nil {
		return err
	}

	o := d.Order
	fmt.Fprintf(a.out, "order     %s (%s)\n", o.ID, o.Status)
	fmt.Fprintf(a.out, "customer  %s <%s> %s\n", d.User.Name, d.User.Email, d.User.Phone)
	fmt.Fprintf(a.out, "item      %s %s\n", d.Product.Type, d.Product.Title)
	fmt.Fprintf(a.out, "amounts   subtotal %d, shipping %d, discount %d, total %d THB\n",
		o.Subtotal, o.ShippingFee, o.CouponDiscount, o.Total)
	if d.Coupon != nil && o.CouponCode != nil {
		fmt.Fprintf(a.out, "coupon    %s\n", *o.CouponCode)
	}
	if p := d.Payment; p != nil {
		fmt.Fprintf(a.out, "payment   %s %s\n", p.Method, p.Status)
		if p.Ref != nil {
			fmt.Fprintf(a.out, "ref       %s\n", *p.Ref)
		}
		if p.SlipURL != nil {
			fmt.Fprintf(a.out, "slip      %s\n", *p.SlipURL)
		}
		if p.RejectionReason != nil {
			fmt.Fprintf(a.out, "rejected  %s\n", *p.RejectionReason)
		}
		if p.Notes != nil {
			fmt.Fprintf(a.out, "notes     %s\n", *p.Notes)
		}
	}
	if s := d.Shipping; s != nil {
		fmt.Fprintf(a.out, "shipping  %s, %s %s\n", s.Status, s.Address, s.Province)
	}
	return nil
}

func (a *app) transition(ctx context.Context, action string, args []string) error {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	notes := fs.String("notes", "", "admin notes")
	reason := fs.String("reason", "", "rejection reason")
	id, err := orderID(fs, args)
	if err != nil {
		return err
	}

	var res *orders.TransitionResult
	switch action {
	case "confirm":
		res, err = a.console.Confirm(ctx, id, *notes)
	case "reject":
		res, err = a.console.Reject(ctx, id, *reason, *notes)
	default:
		res, err = a.console.Cancel(ctx, id, *notes)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "order %s is now %s\n", res.Order.ID, res.Order.Status)
	if res.Enrollment != nil {
		fmt.Fprintf(a.out, "access granted to user %s\n", res.Enrollment.UserID)
	}
	return nil
}

func (a *app) bulk(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bulk", flag.ContinueOnError)
	rawAction := fs.String("action", "", "confirm_payment, reject_payment or cancel_orders")
	notes := fs.String("notes", "", "admin notes, used as the reason when rejecting")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}
	action, err := orders.ParseBulkAction(*rawAction)
	if err != nil {
		return err
	}

	a.console.SetFilter(client.ConsoleFilter{Page: client.PageRequest{PageSize: 100}})
	if err := a.console.Refresh(ctx); err != nil {
		return err
	}
	if n := a.console.Select(fs.Args()...); n < fs.NArg() {
		a.logger.Warn("some orders were skipped", "requested", fs.NArg(), "selected", n)
	}

	res, msg, err := a.console.Bulk(ctx, action, *notes)
	if res == nil {
		return err
	}

	for _, r := range res.Results {
		if r.Success {
			fmt.Fprintf(a.out, "%s  ok\n", r.OrderID)
		} else {
			fmt.Fprintf(a.out, "%s  failed: %s\n", r.OrderID, r.Error)
		}
	}
	fmt.Fprintln(a.out, msg)
	return err
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	cached := fs.Bool("cached", false, "show the stored analysis without running a new one")
	id, err := orderID(fs, args)
	if err != nil {
		return err
	}

	var an *domain.SlipAnalysis
	if *cached {
		an, err = a.console.Analysis(ctx, id)
	} else {
		an, err = a.console.Analyze(ctx, id)
	}
	if err != nil {
		return err
	}
	if an == nil {
		fmt.Fprintln(a.out, "no analysis for this order yet")
		return nil
	}

	s := an.Summary
	fmt.Fprintf(a.out, "score     %s (valid: %t)\n", s.ValidationScore, an.Validation.IsValid)
	if s.DetectedAmount != nil {
		fmt.Fprintf(a.out, "amount    %.2f THB (match: %t)\n", *s.DetectedAmount, s.AmountMatch)
	}
	if s.DetectedDate != nil {
		fmt.Fprintf(a.out, "date      %s\n", s.DetectedDate.Format("2006-01-02 15:04"))
	}
	if s.TransRef != "" {
		fmt.Fprintf(a.out, "ref       %s\n", s.TransRef)
	}
	for _, v := range an.Validation.Validations {
		fmt.Fprintf(a.out, "  [%s] %s\n", strings.ToUpper(string(v.Status)), v.Message)
	}
	return nil
}
