// Package console is a line-oriented terminal front end for the shop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fresho/internal/catalog"
	"github.com/xenking/fresho/internal/domain/fallback"
	"github.com/xenking/fresho/internal/session"
	"github.com/xenking/fresho/internal/shop"
	"github.com/xenking/fresho/internal/ui"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

var errUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":     {usage: "help", help: "list commands", run: (*Console).cmdHelp},
		"login":    {usage: "login <email> <password>", help: "sign in", run: (*Console).cmdLogin},
		"logout":   {usage: "logout", help: "sign out and clear state", run: (*Console).cmdLogout},
		"load":     {usage: "load", help: "load the first catalog page", run: (*Console).cmdLoad},
		"more":     {usage: "more", help: "load the next catalog page", run: (*Console).cmdMore},
		"list":     {usage: "list", help: "show loaded products", run: (*Console).cmdList},
		"open":     {usage: "open <product-id>", help: "show product details", run: (*Console).cmdOpen},
		"inc":      {usage: "inc", help: "raise the details quantity", run: (*Console).cmdInc},
		"dec":      {usage: "dec", help: "lower the details quantity", run: (*Console).cmdDec},
		"add":      {usage: "add", help: "add the details quantity to the cart", run: (*Console).cmdAdd},
		"cart":     {usage: "cart", help: "show the cart", run: (*Console).cmdCart},
		"qty":      {usage: "qty <product-id> <n>", help: "set a cart line quantity", run: (*Console).cmdQty},
		"rm":       {usage: "rm <product-id>", help: "remove a cart line", run: (*Console).cmdRemove},
		"clear":    {usage: "clear", help: "empty the cart", run: (*Console).cmdClear},
		"checkout": {usage: "checkout", help: "place the order", run: (*Console).cmdCheckout},
		"scan":     {usage: "scan <code>", help: "scan a barcode", run: (*Console).cmdScan},
		"quit":     {usage: "quit", help: "exit", run: (*Console).cmdQuit},
	}
}

// Console renders toasts and screens to out and executes commands against a
// shop. It is the shop's Notifier and Navigator.
type Console struct {
	out io.Writer

	mu     sync.Mutex
	shop   *shop.Shop
	screen ui.Screen
	detail *shop.Detail
}

var (
	_ ui.Notifier  = (*Console)(nil)
	_ ui.Navigator = (*Console)(nil)
)

// New returns a console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Attach binds the shop that commands operate on.
func (c *Console) Attach(s *shop.Shop) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shop = s
}

// Screen returns the current screen.
func (c *Console) Screen() ui.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// Notify implements ui.Notifier.
func (c *Console) Notify(ctx context.Context, t ui.Toast) {
	zctx.From(ctx).Debug("Toast", zap.String("title", t.Title), zap.Stringer("kind", t.Kind))
	if t.Body == "" {
		c.printf("[%s] %s\n", t.Kind, t.Title)
		return
	}
	c.printf("[%s] %s: %s\n", t.Kind, t.Title, t.Body)
}

// Navigate implements ui.Navigator.
func (c *Console) Navigate(ctx context.Context, r ui.Route) {
	c.mu.Lock()
	c.screen = r.Screen
	c.detail = nil
	s := c.shop
	c.mu.Unlock()

	c.printf("-> %s\n", r.Screen)
	if r.Screen != ui.ScreenProductDetails || s == nil {
		return
	}

	d, err := s.OpenDetail(r)
	if err != nil {
		zctx.From(ctx).Warn("Cannot open details", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.detail = d
	c.mu.Unlock()
	c.printDetail(d)
}

// Run reads commands from in until EOF, quit or ctx is done. Reading happens
// on its own goroutine so cancellation does not wait for the next line.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	type result struct {
		line string
		err  error
		eof  bool
	}
	lines := make(chan result)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- result{line: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case lines <- result{err: sc.Err(), eof: true}:
		case <-ctx.Done():
		}
	}()

	c.printf("fresho console, type 'help' for commands\n")
	for {
		c.printf("> ")
		var r result
		select {
		case <-ctx.Done():
			return nil
		case r = <-lines:
		}
		if r.eof {
			return r.err
		}
		err := c.Execute(ctx, r.line)
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			c.printf("error: %s\n", err)
		}
	}
}

// Execute runs a single command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		return errors.Errorf("unknown command %q", fields[0])
	}
	if err := cmd.run(c, ctx, fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return errors.Errorf("usage: %s", cmd.usage)
		}
		return err
	}
	return nil
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) attached() (*shop.Shop, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shop == nil {
		return nil, errors.New("console is not attached")
	}
	return c.shop, nil
}

func (c *Console) currentDetail() (*shop.Detail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return nil, errors.New("no product open, use 'open <product-id>'")
	}
	return c.detail, nil
}

func (c *Console) cmdHelp(_ context.Context, _ []string) error {
	names := []string{
		"login", "logout", "load", "more", "list", "open", "inc", "dec", "add",
		"cart", "qty", "rm", "clear", "checkout", "scan", "help", "quit",
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, n := range names {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", commands[n].usage, commands[n].help)
	}
	return tw.Flush()
}

func (c *Console) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	s, err := c.attached()
	if err != nil {
		return err
	}
	return s.Login(ctx, session.Credentials{Email: args[0], Password: args[1]})
}

func (c *Console) cmdLogout(ctx context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	return s.Logout(ctx)
}

func (c *Console) cmdLoad(ctx context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	if err := s.LoadCatalog(ctx); err != nil {
		return err
	}
	return c.cmdList(ctx, nil)
}

func (c *Console) cmdMore(ctx context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	if err := s.LoadMore(ctx); err != nil {
		return err
	}
	return c.cmdList(ctx, nil)
}

func (c *Console) cmdList(_ context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	st := s.Pager().State()
	cards := s.Cards()

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, card := range cards {
		p := card.Product
		uri, fb := card.Image()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t₹%s\t₹%s\t%d%% off\t%s\n",
			p.ID, p.Name, p.Category,
			p.DiscountedPrice.StringFixed(2), p.OriginalPrice.StringFixed(2),
			p.DiscountPercent, imageLabel(uri, fb),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if st.HasMore() && st.Status == catalog.StatusSuccess {
		more = ", 'more' for the next page"
	}
	c.printf("%d products, page %d/%d, %s%s\n", len(cards), st.Page, st.TotalPages, st.Status, more)
	return nil
}

func (c *Console) cmdOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, err := c.attached()
	if err != nil {
		return err
	}
	return s.OpenProduct(ctx, args[0])
}

func (c *Console) cmdInc(_ context.Context, _ []string) error {
	d, err := c.currentDetail()
	if err != nil {
		return err
	}
	d.Increment()
	c.printStepper(d)
	return nil
}

func (c *Console) cmdDec(_ context.Context, _ []string) error {
	d, err := c.currentDetail()
	if err != nil {
		return err
	}
	d.Decrement()
	c.printStepper(d)
	return nil
}

func (c *Console) cmdAdd(ctx context.Context, _ []string) error {
	d, err := c.currentDetail()
	if err != nil {
		return err
	}
	added, err := d.AddToCart(ctx)
	if err != nil {
		return err
	}
	if !added {
		c.printf("quantity is 0, use 'inc' first\n")
	}
	return nil
}

func (c *Console) cmdCart(_ context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	snap := s.Cart()
	if snap.IsEmpty() {
		c.printf("cart is empty\n")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, l := range snap.Lines() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\tx%d\t₹%s\t%s\n",
			l.ProductID, l.Name, l.Quantity, l.Subtotal().StringFixed(2), imageLabel(l.Image, l.Fallback))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c.printf("%d items, total ₹%s\n", snap.TotalItems(), snap.TotalPrice().StringFixed(2))
	return nil
}

func (c *Console) cmdQty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	s, err := c.attached()
	if err != nil {
		return err
	}
	s.SetQuantity(args[0], n)
	return c.cmdCart(ctx, nil)
}

func (c *Console) cmdRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, err := c.attached()
	if err != nil {
		return err
	}
	s.RemoveLine(args[0])
	return c.cmdCart(ctx, nil)
}

func (c *Console) cmdClear(ctx context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	s.ClearCart()
	return c.cmdCart(ctx, nil)
}

func (c *Console) cmdCheckout(ctx context.Context, _ []string) error {
	s, err := c.attached()
	if err != nil {
		return err
	}
	order, err := s.Checkout(ctx)
	if err != nil {
		if errors.Is(err, shop.ErrEmptyCart) {
			return nil
		}
		return err
	}
	c.printf("order %s: %d items\n", order.ID, order.TotalItems)
	return nil
}

func (c *Console) cmdScan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, err := c.attached()
	if err != nil {
		return err
	}
	if c.Screen() != ui.ScreenScan {
		if err := s.OpenScanner(ctx); err != nil {
			return err
		}
	}
	_, ok, err := s.Scan(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		c.printf("scanner is busy, try again shortly\n")
	}
	return nil
}

func (c *Console) cmdQuit(_ context.Context, _ []string) error {
	return ErrQuit
}

func (c *Console) printDetail(d *shop.Detail) {
	p := d.Product()
	uri, fb := d.Image()
	c.printf("%s (%s)\n  %s\n  ₹%s  was ₹%s  %d%% off\n",
		p.Name, p.ID, imageLabel(uri, fb),
		p.DiscountedPrice.StringFixed(2), p.OriginalPrice.StringFixed(2), p.DiscountPercent)
	if p.Synthetic {
		c.printf("  not in the catalog\n")
	}
	c.printStepper(d)
}

func (c *Console) printStepper(d *shop.Detail) {
	c.printf("  quantity %d, total ₹%s\n", d.Quantity(), d.LineTotal().StringFixed(2))
}

func imageLabel(uri string, fb fallback.Handle) string {
	if uri != "" {
		return uri
	}
	if p, ok := fb.Placeholder(); ok {
		return "placeholder:" + p.Name
	}
	return "no image"
}
